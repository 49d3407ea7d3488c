package httphandler

import (
	"net/http"
	"strconv"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// ServiceResponse is the JSON representation of a catalog entry.
type ServiceResponse struct {
	ServiceID   int    `json:"serviceId"`
	ProviderID  int    `json:"providerId"`
	ServiceName string `json:"serviceName"`
	Days        string `json:"days"`
}

// UpstreamServicesResponse lists the services configured on the booking account.
type UpstreamServicesResponse struct {
	Success bool                  `json:"success"`
	Data    []UpstreamServiceJSON `json:"data"`
}

// UpstreamServiceJSON is one service as listed by the booking API.
type UpstreamServiceJSON struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
	Active          bool   `json:"active"`
	ProviderIDs     []int  `json:"providerIds"`
}

// UpstreamProvidersResponse lists the providers configured on the booking account.
type UpstreamProvidersResponse struct {
	Success bool           `json:"success"`
	Data    []ProviderJSON `json:"data"`
}

// ProviderJSON is one provider as listed by the booking API.
type ProviderJSON struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// ListServices returns the catalog queried by the availability endpoint.
func (h *Handler) ListServices(w http.ResponseWriter, _ *http.Request) {
	resp := make([]ServiceResponse, 0, len(h.catalog))
	for _, q := range h.catalog {
		resp = append(resp, toServiceResponse(q))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListUpstreamServices proxies the booking account's service list. Inactive
// services are included only with ?all=1.
func (h *Handler) ListUpstreamServices(w http.ResponseWriter, r *http.Request) {
	if h.configErr != nil {
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(h.configErr, h.now()))
		return
	}

	services, err := h.dirSvc.Services(r.Context(), includeInactive(r))
	if err != nil {
		h.logger.Error("listing upstream services failed", "error", err, "request_id", RequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(err, h.now()))
		return
	}

	resp := UpstreamServicesResponse{Success: true, Data: make([]UpstreamServiceJSON, 0, len(services))}
	for _, s := range services {
		resp.Data = append(resp.Data, UpstreamServiceJSON{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			DurationMinutes: s.DurationMinutes,
			Active:          s.Active,
			ProviderIDs:     nonNilInts(s.ProviderIDs),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListUpstreamProviders proxies the booking account's provider list. Inactive
// providers are included only with ?all=1.
func (h *Handler) ListUpstreamProviders(w http.ResponseWriter, r *http.Request) {
	if h.configErr != nil {
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(h.configErr, h.now()))
		return
	}

	providers, err := h.dirSvc.Providers(r.Context(), includeInactive(r))
	if err != nil {
		h.logger.Error("listing upstream providers failed", "error", err, "request_id", RequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(err, h.now()))
		return
	}

	resp := UpstreamProvidersResponse{Success: true, Data: make([]ProviderJSON, 0, len(providers))}
	for _, p := range providers {
		resp.Data = append(resp.Data, ProviderJSON{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Active:      p.Active,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// toServiceResponse converts a catalog entry to its JSON representation.
func toServiceResponse(q model.ServiceQuery) ServiceResponse {
	return ServiceResponse{
		ServiceID:   q.ServiceID,
		ProviderID:  q.ProviderID,
		ServiceName: q.DisplayName,
		Days:        string(q.Weekday),
	}
}

func includeInactive(r *http.Request) bool {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	return all
}

func nonNilInts(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
