package handler

import (
	"encoding/json"
	"net/http"
	"tourbook/internal/tours/service"
	apperrors "tourbook/pkg/errors"
	httputil "tourbook/pkg/http"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TourHandler struct {
	service service.TourService
	log     *logger.Logger
}

func NewTourHandler(service service.TourService, log *logger.Logger) *TourHandler {
	return &TourHandler{
		service: service,
		log:     log,
	}
}

func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tour model.Tour
	if err := json.NewDecoder(r.Body).Decode(&tour); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &tour); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, tour); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TourHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tour, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, tour); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tours, err := h.service.GetAll(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, tours); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.TourUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	tour, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, tour); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TourHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TourHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/tours", h.Create)
	router.GET("/api/v1/tours", h.GetAll)
	router.GET("/api/v1/tours/id/:id", h.GetByID)
	router.PATCH("/api/v1/tours/id/:id", h.Update)
	router.DELETE("/api/v1/tours/id/:id", h.Delete)
}
