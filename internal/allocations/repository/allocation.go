package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	allocationserrors "lanesched/internal/allocations/errors"
	"lanesched/pkg/config"
	mongotx "lanesched/pkg/db/mongo"
	"lanesched/pkg/model"
)

const (
	RunsCollectionName         = "AllocationRuns"
	ReservationsCollectionName = "Reservations"
)

type AllocationRepository interface {
	CreateRun(ctx context.Context, run *model.Run) error
	FindRunByID(ctx context.Context, id string) (*model.Run, error)
	FindRuns(ctx context.Context, limit int, offset int64) ([]*model.Run, error)
	CountRuns(ctx context.Context) (int64, error)

	FindReservationsBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	MarkReservationsAllocated(ctx context.Context, ids []string, runID string) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAllocationRepository struct {
	cfg          *config.Config
	db           *mongo.Database
	runs         *mongo.Collection
	reservations *mongo.Collection
	txManager    mongotx.TransactionManager
}

func NewMongoAllocationRepository(cfg *config.Config) AllocationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAllocationRepository{
		cfg:          cfg,
		db:           db,
		runs:         db.Collection(RunsCollectionName),
		reservations: db.Collection(ReservationsCollectionName),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext is returned unchanged with a no-op cancel, since wrapping it
// would detach the operation from its transaction.
func (r *mongoAllocationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	if remaining := time.Until(deadline); remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAllocationRepository) CreateRun(ctx context.Context, run *model.Run) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if _, err := r.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to create allocation run: %w", err)
	}
	return nil
}

func (r *mongoAllocationRepository) FindRunByID(ctx context.Context, id string) (*model.Run, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", allocationserrors.ErrInvalidID, id)
	}

	var run model.Run
	if err := r.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", allocationserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find allocation run: %w", err)
	}
	return &run, nil
}

func (r *mongoAllocationRepository) FindRuns(ctx context.Context, limit int, offset int64) ([]*model.Run, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := r.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := []*model.Run{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode allocation runs: %w", err)
	}
	return runs, nil
}

func (r *mongoAllocationRepository) CountRuns(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.runs.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count allocation runs: %w", err)
	}
	return count, nil
}

// FindReservationsBetween returns reservations starting in [from, to), in
// start order and then insertion order, so runs over the same day are
// reproducible.
func (r *mongoAllocationRepository) FindReservationsBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"start_time": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.reservations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer cursor.Close(ctx)

	reservations := []model.Reservation{}
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoAllocationRepository) MarkReservationsAllocated(ctx context.Context, ids []string, runID string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": documentIDs(ids)}}
	update := bson.M{"$set": bson.M{"run_id": runID}}
	if _, err := r.reservations.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark reservations allocated: %w", err)
	}
	return nil
}

func (r *mongoAllocationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// documentIDs matches reservations imported with ObjectIDs as well as ones
// written with string keys.
func documentIDs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
			continue
		}
		out = append(out, id)
	}
	return out
}
