package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/nextslot/internal/application"
	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	availSvc    *application.AvailabilityService
	dirSvc      *application.DirectoryService
	catalog     []model.ServiceQuery
	configErr   error
	cacheMaxAge time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. A non-nil
// configErr makes every upstream-backed endpoint answer 500 with that error
// without touching the network; availSvc and dirSvc may then be nil.
func NewHandler(
	availSvc *application.AvailabilityService,
	dirSvc *application.DirectoryService,
	catalog []model.ServiceQuery,
	configErr error,
	cacheMaxAge time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		availSvc:    availSvc,
		dirSvc:      dirSvc,
		catalog:     catalog,
		configErr:   configErr,
		cacheMaxAge: cacheMaxAge,
		now:         time.Now,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request-ID, logging, CORS and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/availability", h.GetAvailability)
	mux.HandleFunc("POST /api/v1/availability", h.GetAvailability)
	mux.HandleFunc("GET /api/v1/slots", h.GetSlots)
	mux.HandleFunc("GET /api/v1/services", h.ListServices)
	mux.HandleFunc("GET /api/v1/upstream/services", h.ListUpstreamServices)
	mux.HandleFunc("GET /api/v1/upstream/providers", h.ListUpstreamProviders)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = corsMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// GetAvailability runs one availability query over the whole catalog. Partial
// failures are reported per service inside a 200 response; only a fatal error
// fails the request.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	if h.configErr != nil {
		h.logger.Error("availability unavailable", "error", h.configErr)
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(h.configErr, h.now()))
		return
	}

	report, err := h.availSvc.QueryAvailability(r.Context(), h.catalog, h.availSvc.Window())
	if err != nil {
		h.logger.Error("availability run failed",
			"error", err,
			"request_id", RequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, toFailureResponse(err, h.now()))
		return
	}

	if h.cacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.cacheMaxAge.Seconds())))
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(report))
}

// GetSlots finds the next available date for one service and provider. The
// window starts today, or at the optional date parameter.
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	serviceID, ok := parseID(q.Get("serviceId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "serviceId is required and must be a positive integer")
		return
	}
	providerID, ok := parseID(q.Get("providerId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "providerId is required and must be a positive integer")
		return
	}

	var start time.Time
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
			return
		}
		start = d
	}

	if h.configErr != nil {
		h.logger.Error("slot lookup unavailable", "error", h.configErr)
		writeError(w, http.StatusInternalServerError, h.configErr.Error())
		return
	}

	window := h.availSvc.Window()
	if !start.IsZero() {
		window = h.availSvc.WindowFrom(start)
	}

	lookup, err := h.availSvc.LookupSlots(r.Context(), serviceID, providerID, window)
	if err != nil {
		h.logger.Error("slot lookup failed",
			"service_id", serviceID,
			"provider_id", providerID,
			"error", err,
			"request_id", RequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, model.PublicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, toSlotLookupResponse(lookup))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// parseID parses a positive integer identifier.
func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
