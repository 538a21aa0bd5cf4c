package handler

import (
	"encoding/json"
	"net/http"

	"yoyaku/internal/reservations/service"
	apperrors "yoyaku/pkg/errors"
	httputil "yoyaku/pkg/http"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotStatusHandler struct {
	service service.SlotStatusService
	log     *logger.Logger
}

func NewSlotStatusHandler(service service.SlotStatusService, log *logger.Logger) *SlotStatusHandler {
	return &SlotStatusHandler{
		service: service,
		log:     log,
	}
}

type slotStatusResponse struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	State string `json:"state"`
}

func (h *SlotStatusHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	key := model.SlotKey{Date: query.Get("date"), Time: query.Get("time")}
	if key.Date == "" || key.Time == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("date and time query parameters are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	state, err := h.service.Get(r.Context(), key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slotStatusResponse{Date: key.Date, Time: key.Time, State: string(state)}); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

type advanceRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *SlotStatusHandler) Advance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Advance", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	key := model.SlotKey{Date: req.Date, Time: req.Time}
	state, err := h.service.Advance(r.Context(), key, bearerToken(r))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Advance", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slotStatusResponse{Date: key.Date, Time: key.Time, State: string(state)}); err != nil {
		h.log.Error("failed to write success response", "handler", "Advance", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotStatusHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("date query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	grid, err := h.service.Availability(r.Context(), date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, grid); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotStatusHandler) Hours(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hours, err := h.service.Hours(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Hours", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, hours); err != nil {
		h.log.Error("failed to write success response", "handler", "Hours", "operation", "WriteSuccess", "error", err)
	}
}

type updateHoursRequest struct {
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

func (h *SlotStatusHandler) UpdateHours(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req updateHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateHours", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	hours, err := h.service.UpdateHours(r.Context(), req.OpeningTime, req.ClosingTime, bearerToken(r))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateHours", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, hours); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateHours", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotStatusHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots/status", h.Get)
	router.POST("/api/v1/slots/status/advance", h.Advance)
	router.GET("/api/v1/slots/availability", h.Availability)
	router.GET("/api/v1/slots/hours", h.Hours)
	router.PUT("/api/v1/slots/hours", h.UpdateHours)
}
