package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lanesched/internal/allocations/service"
	apperrors "lanesched/pkg/errors"
	httputil "lanesched/pkg/http"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

type AllocationHandler struct {
	service service.AllocationService
	log     *logger.Logger
}

func NewAllocationHandler(service service.AllocationService, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{
		service: service,
		log:     log,
	}
}

func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AllocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Allocate", err)
		return
	}

	run, err := h.service.Allocate(r.Context(), model.RunSourceRequest, &req)
	if err != nil {
		h.writeError(w, "Allocate", err)
		return
	}

	if err := httputil.WriteCreated(w, run); err != nil {
		h.log.Error("failed to write created response", "handler", "Allocate", "operation", "WriteCreated", "error", err)
	}
}

func (h *AllocationHandler) AllocateDay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	day := r.URL.Query().Get("date")
	if day == "" {
		h.writeError(w, "AllocateDay", apperrors.InvalidInput("date query parameter is required"))
		return
	}

	run, err := h.service.AllocateDay(r.Context(), day)
	if err != nil {
		h.writeError(w, "AllocateDay", err)
		return
	}

	if err := httputil.WriteCreated(w, run); err != nil {
		h.log.Error("failed to write created response", "handler", "AllocateDay", "operation", "WriteCreated", "error", err)
	}
}

func (h *AllocationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	run, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, run); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AllocationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	runs, totalCount, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, runs, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *AllocationHandler) Schedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mode := model.ScheduleMode(r.URL.Query().Get("mode"))

	schedule, err := h.service.Schedule(r.Context(), ps.ByName("id"), mode)
	if err != nil {
		h.writeError(w, "Schedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, schedule); err != nil {
		h.log.Error("failed to write success response", "handler", "Schedule", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AllocationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AllocationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/allocations", h.Allocate)
	router.POST("/api/v1/allocations/day", h.AllocateDay)
	router.GET("/api/v1/allocations", h.GetAll)
	router.GET("/api/v1/allocations/id/:id", h.GetByID)
	router.GET("/api/v1/allocations/id/:id/schedule", h.Schedule)
}
