package simplybook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// DecodeDays detects which of the known slot layouts body uses and converts
// it into day records sorted by date. Recognized layouts:
//
//   - an array of day objects: [{"date": "...", "slots": [...]}]
//   - the same array wrapped as {"data": [...]}
//   - a JSON-RPC envelope {"result": ...} around any layout below
//   - an object mapping ISO dates to interval arrays: {"2025-06-10": [...]}
//
// A JSON-RPC error envelope yields *model.UpstreamError. A body that is not
// JSON yields *model.UpstreamError; valid JSON of any other shape yields
// *model.SchemaError.
func DecodeDays(body []byte) ([]model.DayRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &model.UpstreamError{Body: model.Excerpt(body), Err: fmt.Errorf("decoding response: %w", err)}
	}

	days, err := decodeValue(root, true)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(days, func(a, b model.DayRecord) int {
		return strings.Compare(dateKey(a.Date), dateKey(b.Date))
	})
	return days, nil
}

// decodeValue dispatches on the JSON type of v. Envelopes are only unwrapped
// at the top level. A null JSON-RPC result means no days; a null data
// payload or an empty top-level object is not a recognized layout.
func decodeValue(v any, top bool) ([]model.DayRecord, error) {
	switch t := v.(type) {
	case nil:
		if top {
			return nil, &model.SchemaError{Reason: "response is null"}
		}
		return []model.DayRecord{}, nil

	case []any:
		return decodeDayList(t)

	case map[string]any:
		if top {
			if len(t) == 0 {
				return nil, &model.SchemaError{Reason: "response is an empty object"}
			}
			if rpcErr, ok := t["error"]; ok && rpcErr != nil {
				return nil, &model.UpstreamError{Err: decodeRPCError(rpcErr)}
			}
			if result, ok := t["result"]; ok {
				return decodeValue(result, false)
			}
			if data, ok := t["data"]; ok {
				if data == nil {
					return nil, &model.SchemaError{Reason: "data is null"}
				}
				return decodeValue(data, false)
			}
		}
		return decodeIntervalMap(t)

	default:
		return nil, &model.SchemaError{Reason: fmt.Sprintf("unexpected %T at top level", v)}
	}
}

// decodeDayList reads an array of {"date", "slots"} objects.
func decodeDayList(items []any) ([]model.DayRecord, error) {
	days := make([]model.DayRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("day %d is %T, want object", i, item)}
		}
		date, ok := obj["date"].(string)
		if !ok || strings.TrimSpace(date) == "" {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("day %d has no date", i)}
		}

		var slots []model.SlotRecord
		switch raw := obj["slots"].(type) {
		case nil:
		case []any:
			slots = make([]model.SlotRecord, 0, len(raw))
			for _, s := range raw {
				slots = append(slots, decodeSlot(s, false))
			}
		default:
			return nil, &model.SchemaError{Reason: fmt.Sprintf("day %q slots is %T, want array", date, raw)}
		}

		days = append(days, model.DayRecord{Date: date, Slots: slots})
	}
	return days, nil
}

// decodeIntervalMap reads a {"YYYY-MM-DD": [interval, ...]} object. Every key
// must be a date; intervals are available by construction.
func decodeIntervalMap(obj map[string]any) ([]model.DayRecord, error) {
	days := make([]model.DayRecord, 0, len(obj))
	for key, value := range obj {
		if _, err := time.Parse(model.DateLayout, dateKey(key)); err != nil {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("object key %q is not a date", key)}
		}

		var slots []model.SlotRecord
		switch raw := value.(type) {
		case nil:
		case []any:
			slots = make([]model.SlotRecord, 0, len(raw))
			for _, s := range raw {
				slots = append(slots, decodeSlot(s, true))
			}
		case map[string]any:
			slots = []model.SlotRecord{decodeSlot(raw, true)}
		case string:
			slots = []model.SlotRecord{decodeSlot(raw, true)}
		default:
			return nil, &model.SchemaError{Reason: fmt.Sprintf("intervals for %q are %T", key, raw)}
		}

		days = append(days, model.DayRecord{Date: key, Slots: slots})
	}
	return days, nil
}

// decodeSlot reads one slot given as a bare time string or as an object.
func decodeSlot(v any, interval bool) model.SlotRecord {
	switch t := v.(type) {
	case string:
		return model.SlotRecord{Time: t, Available: interval}
	case map[string]any:
		return model.SlotRecord{
			ID:        scalarString(t["id"]),
			Time:      firstString(t, "time", "from", "start_time"),
			Available: interval || truthy(t["is_available"]),
		}
	default:
		return model.SlotRecord{Available: interval}
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalarString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// truthy mirrors how the API encodes flags: booleans, 0/1 numbers, or the
// same as strings.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes":
			return true
		}
	}
	return false
}

// dateKey returns the calendar part of a date or timestamp string.
func dateKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(model.DateLayout) {
		return s[:len(model.DateLayout)]
	}
	return s
}
