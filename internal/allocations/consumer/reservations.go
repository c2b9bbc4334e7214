package consumer

import (
	"context"

	"lanesched/internal/allocations/service"
	apperrors "lanesched/pkg/errors"
	"lanesched/pkg/kafka"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

// ReservationHandler allocates reservation batches arriving on the
// reservations topic. Each message is one independent run.
type ReservationHandler struct {
	service service.AllocationService
	log     *logger.Logger
}

func NewReservationHandler(service service.AllocationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{service: service, log: log}
}

func (h *ReservationHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var req model.AllocationRequest
	if err := msg.DecodeValue(&req); err != nil {
		return kafka.NewPermanentError("undecodable reservation batch", err).
			WithDetail("offset", msg.Offset)
	}

	run, err := h.service.Allocate(ctx, model.RunSourceStream, &req)
	if err != nil {
		return classify(err)
	}

	h.log.Info("Reservation batch allocated",
		"run_id", run.ID,
		"event_id", msg.GetEventID(),
		"correlation_id", msg.GetCorrelationID(),
		"assigned", run.Stats.Assigned,
		"unmet_demand", run.Stats.UnmetDemand,
	)
	return nil
}

// classify maps service errors onto retry semantics: bad input and broken
// settings never succeed on retry, storage and timeout failures might.
func classify(err error) error {
	appErr := apperrors.AsAppError(err)
	switch appErr.Code {
	case apperrors.CodeValidation, apperrors.CodeInvalidInput, apperrors.CodeUnprocessableRun,
		apperrors.CodeBadRequest, apperrors.CodeNotFound, apperrors.CodeConflict,
		apperrors.CodeMisconfigured:
		return kafka.NewPermanentError("reservation batch rejected", err)
	default:
		return kafka.NewTransientError("reservation batch not allocated", err)
	}
}
