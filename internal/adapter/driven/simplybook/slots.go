package simplybook

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlotSource = (*RESTSlotSource)(nil)

// RESTSlotSource reads the slot timeline of the v2 REST API.
type RESTSlotSource struct {
	fetcher  *Fetcher
	endpoint string
}

// NewRESTSlotSource creates a slot source reading {baseURL}/admin/timeline/slots.
func NewRESTSlotSource(fetcher *Fetcher, baseURL string) (*RESTSlotSource, error) {
	endpoint, err := endpointURL(baseURL, "/admin/timeline/slots")
	if err != nil {
		return nil, err
	}
	return &RESTSlotSource{fetcher: fetcher, endpoint: endpoint}, nil
}

// FetchSlots returns the days in window on which providerID offers serviceID,
// with their available slots.
func (s *RESTSlotSource) FetchSlots(ctx context.Context, serviceID, providerID int, window model.DateWindow) ([]model.DayRecord, error) {
	params := url.Values{}
	params.Set("service_id", strconv.Itoa(serviceID))
	params.Set("provider_id", strconv.Itoa(providerID))
	params.Set("date_from", window.FromString())
	params.Set("date_to", window.ToString())
	params.Set("with_available_slots", "1")

	body, err := s.fetcher.Get(ctx, s.endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("fetching slots for service %d provider %d: %w", serviceID, providerID, err)
	}

	return DecodeDays(body)
}
