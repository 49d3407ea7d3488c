package driven

import (
	"context"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// SlotSource defines the driven port for reading bookable slots of one
// service/provider pair over a date window. Days are returned in ascending
// date order.
type SlotSource interface {
	FetchSlots(ctx context.Context, serviceID, providerID int, window model.DateWindow) ([]model.DayRecord, error)
}
