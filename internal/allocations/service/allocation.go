package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"lanesched/internal/allocation"
	allocationserrors "lanesched/internal/allocations/errors"
	"lanesched/internal/allocations/repository"
	"lanesched/internal/allocations/validator"
	"lanesched/internal/projection"
	"lanesched/pkg/config"
	apperrors "lanesched/pkg/errors"
	"lanesched/pkg/model"
	"lanesched/pkg/sanitizer"
)

const dayLayout = "2006-01-02"

type AllocationService interface {
	Allocate(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error)
	AllocateDay(ctx context.Context, day string) (*model.Run, error)
	GetByID(ctx context.Context, id string) (*model.Run, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Run, int64, error)
	Schedule(ctx context.Context, id string, mode model.ScheduleMode) (*model.Schedule, error)
}

// RunPublisher forwards a finished run to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, run *model.Run) error
}

type allocationService struct {
	repo      repository.AllocationRepository
	validator *validator.AllocationValidator
	publisher RunPublisher
	cfg       *config.Config
	now       func() time.Time
}

// NewAllocationService builds the service. publisher may be nil when event
// publishing is disabled.
func NewAllocationService(
	repo repository.AllocationRepository,
	validator *validator.AllocationValidator,
	publisher RunPublisher,
	cfg *config.Config,
) AllocationService {
	return &allocationService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *allocationService) Allocate(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error) {
	if err := s.validator.ValidateBatch(req); err != nil {
		s.cfg.Log.Warn("Reservation batch rejected", "source", source, "error", err)
		return nil, batchError(err)
	}

	run, err := s.compute(source, "", req.Reservations)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRun(ctx, run); err != nil {
		s.cfg.Log.Error("Failed to persist allocation run", "run_id", run.ID, "error", err)
		return nil, apperrors.Internal("Failed to save allocation run", err)
	}

	s.finish(ctx, run)
	return run, nil
}

// AllocateDay allocates every stored reservation starting on day, read in the
// configured time zone, and links the reservations to the new run.
func (s *allocationService) AllocateDay(ctx context.Context, day string) (*model.Run, error) {
	from, err := time.ParseInLocation(dayLayout, day, s.location())
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("date must be formatted as YYYY-MM-DD, got %q", day))
	}
	to := from.AddDate(0, 0, 1)

	reservations, err := s.repo.FindReservationsBetween(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load reservations", "day", day, "error", err)
		return nil, apperrors.Internal("Failed to load reservations", err)
	}
	if len(reservations) == 0 {
		return nil, apperrors.NotFound(fmt.Sprintf("Reservations for %s", day))
	}
	if err := s.validator.ValidateBatch(&model.AllocationRequest{Reservations: reservations}); err != nil {
		return nil, batchError(err)
	}

	run, err := s.compute(model.RunSourceDay, day, reservations)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(reservations))
	for _, r := range reservations {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.CreateRun(sessCtx, run); err != nil {
			return err
		}
		return s.repo.MarkReservationsAllocated(sessCtx, ids, run.ID)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to persist day allocation", "day", day, "run_id", run.ID, "error", err)
		return nil, apperrors.Internal("Failed to save allocation run", err)
	}

	s.finish(ctx, run)
	return run, nil
}

func (s *allocationService) GetByID(ctx context.Context, id string) (*model.Run, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Allocation run ID cannot be empty")
	}

	run, err := s.repo.FindRunByID(ctx, id)
	if err != nil {
		if errors.Is(err, allocationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Allocation run", id)
		}
		if errors.Is(err, allocationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid allocation run ID format")
		}
		s.cfg.Log.Error("Failed to get allocation run by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve allocation run", err)
	}
	return run, nil
}

func (s *allocationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Run, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var runs []*model.Run
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.CountRuns(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count allocation runs", "error", err)
			errCount = apperrors.Internal("Failed to count allocation runs", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		runs, err = s.repo.FindRuns(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get allocation runs",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve allocation runs", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return runs, count, nil
}

// Schedule re-projects a stored run using the settings it was allocated
// with, so later configuration changes do not alter old grids.
func (s *allocationService) Schedule(ctx context.Context, id string, mode model.ScheduleMode) (*model.Schedule, error) {
	if mode == "" {
		mode = model.ScheduleFull
	}
	if !mode.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("mode must be %q or %q", model.ScheduleFull, model.ScheduleCompact))
	}

	run, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	projector, err := s.projectorFor(run.Settings)
	if err != nil {
		s.cfg.Log.Error("Stored run settings cannot be projected", "run_id", id, "error", err)
		return nil, apperrors.Internal("Failed to project allocation run", err)
	}

	schedule := projector.Project(run.Assignments, mode, nil)
	schedule.RunID = run.ID
	return &schedule, nil
}

// compute runs validation, allocation and projection on a fresh allocator.
// Rows rejected by validation become invalid_reservation events next to the
// allocator's own diagnostics.
func (s *allocationService) compute(source, day string, input []model.Reservation) (*model.Run, error) {
	runID := uuid.NewString()
	log := s.cfg.Log.With("run_id", runID, "source", source)
	collector := allocation.NewCollector()

	reservations := sanitizer.NormalizeReservations(input)
	valid := make([]model.Reservation, 0, len(reservations))
	for i := range reservations {
		if err := s.validator.ValidateReservation(&reservations[i]); err != nil {
			collector.Emit(model.Event{
				Kind:      model.EventInvalidReservation,
				Group:     reservations[i].Group,
				StartTime: reservations[i].StartTime,
				Reason:    err.Error(),
			})
			continue
		}
		valid = append(valid, reservations[i])
	}
	if len(valid) == 0 {
		log.Warn("No valid reservations in batch", "received", len(input))
		return nil, apperrors.UnprocessableRun("No valid reservations in batch", map[string]any{
			"events": collector.Events(),
		})
	}

	opts, err := s.cfg.AllocatorOptions()
	if err != nil {
		return nil, apperrors.Misconfigured("Invalid allocation settings", err)
	}
	allocator, err := allocation.New(opts, log, collector)
	if err != nil {
		return nil, apperrors.Misconfigured("Invalid allocation settings", err)
	}
	assignments := allocator.Allocate(valid)

	projector, err := projection.New(s.cfg.ProjectorOptions(), log)
	if err != nil {
		return nil, apperrors.Misconfigured("Invalid schedule settings", err)
	}
	projector.Project(assignments, model.ScheduleFull, collector)

	events := collector.Events()
	run := &model.Run{
		ID:          runID,
		Source:      source,
		Day:         day,
		Settings:    s.cfg.RunSettings(),
		Assignments: assignments,
		Events:      events,
		Stats:       Stats(len(input), assignments, events),
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}

	log.Info("Allocation run computed",
		"reservations", run.Stats.Reservations,
		"assigned", run.Stats.Assigned,
		"unmet_demand", run.Stats.UnmetDemand,
		"lanes_booked", run.Stats.LanesBooked,
	)
	return run, nil
}

// finish publishes the run when a publisher is configured. Publishing is best
// effort: the run is already stored.
func (s *allocationService) finish(ctx context.Context, run *model.Run) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRun(ctx, run); err != nil {
		s.cfg.Log.Error("Failed to publish allocation run", "run_id", run.ID, "error", err)
	}
}

func (s *allocationService) projectorFor(settings model.RunSettings) (*projection.Projector, error) {
	loc, err := time.LoadLocation(settings.TimeZone)
	if err != nil {
		return nil, err
	}
	return projection.New(projection.Options{
		Start:     settings.SlotStart,
		Slots:     settings.SlotCount,
		Interval:  projection.DefaultInterval,
		LaneCount: settings.LaneCount,
		Location:  loc,
	}, s.cfg.Log)
}

func (s *allocationService) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}

// Stats summarizes a run.
func Stats(received int, assignments []model.Assignment, events []model.Event) model.RunStats {
	stats := model.RunStats{
		Reservations: received,
		Assigned:     len(assignments),
	}
	for _, a := range assignments {
		stats.LanesBooked += len(a.Lanes)
		if a.Continued {
			stats.Continued++
		}
	}
	for _, e := range events {
		switch e.Kind {
		case model.EventInvalidStartTime:
			stats.InvalidStartTime++
		case model.EventInvalidReservation:
			stats.InvalidReservation++
		case model.EventUnmetDemand:
			stats.UnmetDemand++
		case model.EventOutOfRange:
			stats.OutOfRange++
		}
	}
	return stats
}

func batchError(err error) error {
	switch {
	case errors.Is(err, allocationserrors.ErrEmptyBatch):
		return apperrors.Validation("At least one reservation is required", nil)
	case errors.Is(err, allocationserrors.ErrBatchTooLarge):
		return apperrors.Validation("Reservation batch is too large", map[string]any{
			"error": err.Error(),
		})
	default:
		return apperrors.Validation("Reservation batch validation failed", map[string]any{
			"error": err.Error(),
		})
	}
}
