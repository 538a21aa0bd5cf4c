package handler

import (
	"encoding/json"
	"net/http"

	"yoyaku/internal/reservations/service"
	apperrors "yoyaku/pkg/errors"
	httputil "yoyaku/pkg/http"
	"yoyaku/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Headers the booking surface reads. The fingerprint is supplied by the
// client and treated as a best-effort abuse signal, never an identity.
const (
	HeaderClientFingerprint = "X-Client-Fingerprint"
	HeaderAuthorization     = "Authorization"

	bearerPrefix = "Bearer "
)

type BookingHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewBookingHandler(service service.ReservationService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}
	req.Fingerprint = r.Header.Get(HeaderClientFingerprint)

	booking, err := h.service.Reserve(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("date query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByDate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, err := h.service.GetByDate(r.Context(), date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByDate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByRange(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")
	if start == "" || end == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("start and end query parameters are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByRange", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, err := h.service.GetByRange(r.Context(), start, end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByRange", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByRange", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")
	if start == "" || end == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("start and end query parameters are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Stats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	counts, err := h.service.Stats(r.Context(), start, end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Stats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, counts); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	fingerprint := r.Header.Get(HeaderClientFingerprint)
	token := bearerToken(r)

	if err := h.service.Delete(r.Context(), id, fingerprint, token); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *BookingHandler) BulkDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "BulkDelete", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.DeleteMany(r.Context(), req.IDs, bearerToken(r))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BulkDelete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "BulkDelete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetByDate)
	router.GET("/api/v1/bookings/range", h.GetByRange)
	router.GET("/api/v1/bookings/stats", h.Stats)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.POST("/api/v1/bookings/bulk-delete", h.BulkDelete)
}

func bearerToken(r *http.Request) string {
	value := r.Header.Get(HeaderAuthorization)
	if len(value) > len(bearerPrefix) && value[:len(bearerPrefix)] == bearerPrefix {
		return value[len(bearerPrefix):]
	}
	return ""
}
