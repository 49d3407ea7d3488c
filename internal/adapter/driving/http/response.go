package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AvailabilityResponse is the envelope of a successful availability run.
type AvailabilityResponse struct {
	Success            bool                   `json:"success"`
	Data               []ServiceAvailability  `json:"data"`
	LastUpdated        string                 `json:"lastUpdated"`
	TotalServices      int                    `json:"totalServices"`
	SuccessfulServices int                    `json:"successfulServices"`
	Window             AvailabilityWindowJSON `json:"window"`
}

// AvailabilityWindowJSON is the date range a run covered.
type AvailabilityWindowJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FailureResponse is the envelope of a run aborted by a fatal error.
type FailureResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// ServiceAvailability is one catalog entry of an availability run.
type ServiceAvailability struct {
	ServiceID          int             `json:"serviceId"`
	ProviderID         int             `json:"providerId"`
	ServiceName        string          `json:"serviceName"`
	NextAvailableDates []DateEntryJSON `json:"nextAvailableDates"`
	HasAvailability    bool            `json:"hasAvailability"`
	Error              string          `json:"error,omitempty"`
}

// DateEntryJSON is a display-ready available date.
type DateEntryJSON struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	Formatted string `json:"formatted"`
}

// SlotLookupResponse is the result of a single-service slot lookup.
type SlotLookupResponse struct {
	ServiceID         int        `json:"serviceId"`
	ProviderID        int        `json:"providerId"`
	NextAvailableDate *string    `json:"nextAvailableDate"`
	AvailableSlots    []SlotJSON `json:"availableSlots"`
	CheckedDates      []string   `json:"checkedDates"`
	Message           string     `json:"message,omitempty"`
}

// SlotJSON is one bookable slot.
type SlotJSON struct {
	ID        string `json:"id,omitempty"`
	Time      string `json:"time,omitempty"`
	Available bool   `json:"available"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toAvailabilityResponse converts a report into the run envelope.
func toAvailabilityResponse(report model.AvailabilityReport) AvailabilityResponse {
	data := make([]ServiceAvailability, 0, len(report.Results))
	for _, res := range report.Results {
		data = append(data, toServiceAvailability(res))
	}

	return AvailabilityResponse{
		Success:            true,
		Data:               data,
		LastUpdated:        report.GeneratedAt.UTC().Format(time.RFC3339),
		TotalServices:      report.Total(),
		SuccessfulServices: report.Successful(),
		Window: AvailabilityWindowJSON{
			From: report.Window.FromString(),
			To:   report.Window.ToString(),
		},
	}
}

func toServiceAvailability(res model.AvailabilityResult) ServiceAvailability {
	dates := make([]DateEntryJSON, 0, len(res.MatchingDates))
	for _, d := range res.MatchingDates {
		dates = append(dates, DateEntryJSON{Date: d.Date, Day: d.Weekday, Formatted: d.Formatted})
	}

	return ServiceAvailability{
		ServiceID:          res.ServiceID,
		ProviderID:         res.ProviderID,
		ServiceName:        res.DisplayName,
		NextAvailableDates: dates,
		HasAvailability:    res.HasAvailability,
		Error:              res.Error,
	}
}

// toSlotLookupResponse converts a lookup, filling the message when nothing
// was found.
func toSlotLookupResponse(lookup model.SlotLookup) SlotLookupResponse {
	slots := make([]SlotJSON, 0, len(lookup.AvailableSlots))
	for _, s := range lookup.AvailableSlots {
		slots = append(slots, SlotJSON{ID: s.ID, Time: s.Time, Available: s.IsAvailable()})
	}

	checked := lookup.CheckedDates
	if checked == nil {
		checked = []string{}
	}

	resp := SlotLookupResponse{
		ServiceID:      lookup.ServiceID,
		ProviderID:     lookup.ProviderID,
		AvailableSlots: slots,
		CheckedDates:   checked,
	}

	if lookup.Found() {
		date := lookup.NextAvailableDate
		resp.NextAvailableDate = &date
	} else if len(checked) > 0 {
		resp.Message = "No available slots found between " + checked[0] + " and " + checked[len(checked)-1] + "."
	} else {
		resp.Message = "No available slots found."
	}

	return resp
}

// toFailureResponse builds the envelope for a run that could not start or
// was aborted.
func toFailureResponse(err error, now time.Time) FailureResponse {
	return FailureResponse{
		Success:   false,
		Error:     model.PublicMessage(err),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
