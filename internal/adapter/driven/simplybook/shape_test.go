package simplybook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/nextslot/internal/adapter/driven/simplybook"
	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

func TestDecodeDays_DayList(t *testing.T) {
	body := `[
		{"date":"2025-06-11","slots":[{"id":12,"time":"10:00","is_available":1}]},
		{"date":"2025-06-10","slots":[{"id":"a","start_time":"09:00"},{"is_available":false}]},
		{"date":"2025-06-12"}
	]`

	days, err := simplybook.DecodeDays([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, []model.DayRecord{
		{Date: "2025-06-10", Slots: []model.SlotRecord{{ID: "a", Time: "09:00"}, {}}},
		{Date: "2025-06-11", Slots: []model.SlotRecord{{ID: "12", Time: "10:00", Available: true}}},
		{Date: "2025-06-12"},
	}, days)
}

func TestDecodeDays_DataEnvelope(t *testing.T) {
	days, err := simplybook.DecodeDays([]byte(`{"data":[{"date":"2025-06-10","slots":[{"time":"09:00"}]}]}`))

	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-06-10", days[0].Date)
}

func TestDecodeDays_IntervalMap(t *testing.T) {
	body := `{"result":{
		"2025-06-12":[{"from":"13:00:00","to":"14:00:00"}],
		"2025-06-10":["09:00:00","10:00:00"],
		"2025-06-11":[]
	}}`

	days, err := simplybook.DecodeDays([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, []model.DayRecord{
		{Date: "2025-06-10", Slots: []model.SlotRecord{
			{Time: "09:00:00", Available: true},
			{Time: "10:00:00", Available: true},
		}},
		{Date: "2025-06-11", Slots: []model.SlotRecord{}},
		{Date: "2025-06-12", Slots: []model.SlotRecord{{Time: "13:00:00", Available: true}}},
	}, days)
}

func TestDecodeDays_BareIntervalMap(t *testing.T) {
	days, err := simplybook.DecodeDays([]byte(`{"2025-06-10":[{"from":"09:00"}]}`))

	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Slots[0].IsAvailable())
}

func TestDecodeDays_EmptyShapes(t *testing.T) {
	for name, body := range map[string]string{
		"empty array":     `[]`,
		"empty intervals": `{"jsonrpc":"2.0","result":{},"id":2}`,
		"null result":     `{"jsonrpc":"2.0","result":null,"id":2}`,
		"empty data":      `{"data":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			days, err := simplybook.DecodeDays([]byte(body))

			require.NoError(t, err)
			assert.Empty(t, days)
		})
	}
}

func TestDecodeDays_RPCErrorIsUpstreamError(t *testing.T) {
	_, err := simplybook.DecodeDays([]byte(`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Access denied"},"id":2}`))

	var upstream *model.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, err.Error(), "-32600")
	assert.Contains(t, err.Error(), "Access denied")
}

func TestDecodeDays_InvalidJSONIsUpstreamError(t *testing.T) {
	_, err := simplybook.DecodeDays([]byte(`[{"date":`))

	var upstream *model.UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestDecodeDays_UnknownShapesAreSchemaErrors(t *testing.T) {
	for name, body := range map[string]string{
		"null":             `null`,
		"empty object":     `{}`,
		"null data":        `{"data":null}`,
		"number":           `42`,
		"string":           `"ok"`,
		"non-date keys":    `{"status":"ok"}`,
		"day without date": `[{"slots":[]}]`,
		"scalar day":       `[1,2]`,
		"slots not array":  `[{"date":"2025-06-10","slots":"none"}]`,
		"string result":    `{"result":"token"}`,
		"numeric interval": `{"2025-06-10":5}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := simplybook.DecodeDays([]byte(body))

			var schema *model.SchemaError
			require.ErrorAs(t, err, &schema)
		})
	}
}
