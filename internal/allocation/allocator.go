package allocation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

const DefaultSessionDuration = 55 * time.Minute

type Options struct {
	SessionDuration     time.Duration
	ContinuityTolerance time.Duration
	Topology            Topology
	// Location is the zone start minutes are read in. Nil means UTC.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		SessionDuration:     DefaultSessionDuration,
		ContinuityTolerance: DefaultContinuityTolerance,
		Topology:            DefaultTopology(),
		Location:            time.UTC,
	}
}

func (o Options) validate() error {
	if o.SessionDuration <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidDuration, o.SessionDuration)
	}
	if o.Topology.LaneCount() == 0 {
		return ErrInvalidTopology
	}
	return nil
}

// Allocator assigns lanes for one scheduling run. Successive Allocate calls
// share the same tracker and continuity records, so batches can be fed
// incrementally; use a new Allocator for an independent run.
type Allocator struct {
	opts     Options
	log      *logger.Logger
	sink     EventSink
	tracker  *ConflictTracker
	resolver *ContinuityResolver
}

func New(opts Options, log *logger.Logger, sink EventSink) (*Allocator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Allocator{
		opts:     opts,
		log:      log,
		sink:     sink,
		tracker:  NewConflictTracker(opts.Topology.LaneCount()),
		resolver: NewContinuityResolver(opts.ContinuityTolerance),
	}, nil
}

func (a *Allocator) Tracker() *ConflictTracker {
	return a.tracker
}

func (a *Allocator) Resolver() *ContinuityResolver {
	return a.resolver
}

// pending is a reservation annotated with its lane requirement and its
// position in the input, used as the final ordering tie-breaker.
type pending struct {
	model.Reservation
	index       int
	lanesNeeded int
}

// Allocate processes reservations in slot order and returns one assignment
// per reservation that received all of its lanes, in processing order.
func (a *Allocator) Allocate(reservations []model.Reservation) []model.Assignment {
	assignments := make([]model.Assignment, 0, len(reservations))
	for _, slot := range slots(a.annotate(reservations)) {
		continuing, fresh := a.partition(slot)
		for _, p := range continuing {
			if asg, ok := a.place(p); ok {
				assignments = append(assignments, asg)
			}
		}
		for _, p := range fresh {
			if asg, ok := a.place(p); ok {
				assignments = append(assignments, asg)
			}
		}
	}
	a.log.Info("Allocation run completed",
		"reservations", len(reservations),
		"assigned", len(assignments),
		"lanes_booked", a.tracker.BookedCount(),
	)
	return assignments
}

// annotate derives lane requirements and rejects reservations that violate
// input preconditions.
func (a *Allocator) annotate(reservations []model.Reservation) []pending {
	out := make([]pending, 0, len(reservations))
	for i, r := range reservations {
		if strings.TrimSpace(r.Group) == "" {
			a.emit(model.Event{
				Kind:      model.EventInvalidReservation,
				Group:     r.Group,
				StartTime: r.StartTime,
				Reason:    ErrEmptyGroup.Error(),
			})
			continue
		}
		need, err := LanesNeeded(r.PartySize)
		if err != nil {
			a.emit(model.Event{
				Kind:      model.EventInvalidReservation,
				Group:     r.Group,
				StartTime: r.StartTime,
				Reason:    fmt.Sprintf("%s, got %d", err.Error(), r.PartySize),
			})
			continue
		}
		out = append(out, pending{Reservation: r, index: i, lanesNeeded: need})
	}
	return out
}

// slots groups reservations by identical start time, earliest slot first.
func slots(items []pending) [][]pending {
	sorted := append([]pending(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var out [][]pending
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].StartTime.Equal(sorted[i].StartTime) {
			j++
		}
		out = append(out, sorted[i:j])
		i = j
	}
	return out
}

// partition splits a slot into continuations of a previous session and new
// reservations. Continuations are evaluated against the records as they stand
// when the slot opens, so a group holding lanes cannot be displaced by a new
// booking in the same slot. Both halves are ordered by group, then input
// position.
func (a *Allocator) partition(slot []pending) (continuing, fresh []pending) {
	for _, p := range slot {
		if a.resolver.Continues(p.Group, p.StartTime) {
			continuing = append(continuing, p)
		} else {
			fresh = append(fresh, p)
		}
	}
	byGroup := func(items []pending) {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Group != items[j].Group {
				return items[i].Group < items[j].Group
			}
			return items[i].index < items[j].index
		})
	}
	byGroup(continuing)
	byGroup(fresh)
	return continuing, fresh
}

func (a *Allocator) place(p pending) (model.Assignment, bool) {
	start := p.StartTime
	end := start.Add(a.opts.SessionDuration)

	pairs, lanes, ok := a.opts.Topology.Candidates(start.In(a.opts.Location))
	if !ok {
		a.emit(model.Event{
			Kind:      model.EventInvalidStartTime,
			Group:     p.Group,
			StartTime: start,
			Reason:    "start time must be on :00 or :30",
		})
		return model.Assignment{}, false
	}

	assigned, continued := a.resolver.Resolve(p.Group, start, end, p.lanesNeeded, a.tracker)
	if !continued {
		assigned = a.greedy(pairs, lanes, p.lanesNeeded, start, end)
	}

	if len(assigned) < p.lanesNeeded {
		a.emit(model.Event{
			Kind:      model.EventUnmetDemand,
			Group:     p.Group,
			StartTime: start,
			Requested: p.lanesNeeded,
			Assigned:  len(assigned),
		})
		return model.Assignment{}, false
	}

	for _, lane := range assigned {
		a.tracker.Book(lane, start, end)
	}
	a.resolver.Remember(p.Group, end, assigned)

	out := append([]model.Lane(nil), assigned...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	a.log.Debug("Lanes assigned",
		"group", p.Group,
		"start_time", start,
		"lanes", out,
		"continued", continued,
	)
	return model.Assignment{
		Group:     p.Group,
		StartTime: start,
		EndTime:   end,
		Lanes:     out,
		Continued: continued,
	}, true
}

// greedy takes whole free facing pairs first and fills the remainder with
// single lanes. A party needing exactly two lanes gets one intact pair; larger
// parties collect pairs while they still fit, so a need of three gets one pair
// plus a single lane. A party needing one lane skips the pair pass.
func (a *Allocator) greedy(pairs []model.FacingPair, lanes []model.Lane, need int, start, end time.Time) []model.Lane {
	// need is unbounded; a slot never offers more than its pool.
	capacity := min(need, len(lanes))
	assigned := make([]model.Lane, 0, capacity)
	taken := make(map[model.Lane]bool, capacity)

	if need >= 2 {
		for _, pair := range pairs {
			if len(assigned)+2 > need {
				break
			}
			if !a.tracker.AllFree(pair.Lanes(), start, end) {
				continue
			}
			assigned = append(assigned, pair[0], pair[1])
			taken[pair[0]], taken[pair[1]] = true, true
			if need == 2 {
				break
			}
		}
	}

	for _, lane := range lanes {
		if len(assigned) >= need {
			break
		}
		if taken[lane] || !a.tracker.IsFree(lane, start, end) {
			continue
		}
		assigned = append(assigned, lane)
		taken[lane] = true
	}
	return assigned
}

func (a *Allocator) emit(event model.Event) {
	a.log.Warn("Reservation skipped",
		"kind", event.Kind,
		"group", event.Group,
		"start_time", event.StartTime,
		"requested", event.Requested,
		"assigned", event.Assigned,
		"reason", event.Reason,
	)
	if a.sink != nil {
		a.sink.Emit(event)
	}
}
