package allocation

import (
	"time"

	"lanesched/pkg/model"
)

type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) overlaps(start, end time.Time) bool {
	return iv.start.Before(end) && iv.end.After(start)
}

// ConflictTracker records the booked intervals of every lane in a run.
//
// IsFree and Book are deliberately split: the allocator checks all candidate
// lanes first and books only once the whole set is known. Book does not
// re-check for overlaps.
type ConflictTracker struct {
	lanes [][]interval
}

func NewConflictTracker(laneCount int) *ConflictTracker {
	return &ConflictTracker{lanes: make([][]interval, laneCount)}
}

func (t *ConflictTracker) valid(lane model.Lane) bool {
	return lane >= 1 && int(lane) <= len(t.lanes)
}

// IsFree reports whether no booking on lane overlaps [start, end). Lanes
// outside the pool are never free.
func (t *ConflictTracker) IsFree(lane model.Lane, start, end time.Time) bool {
	if !t.valid(lane) {
		return false
	}
	for _, iv := range t.lanes[lane-1] {
		if iv.overlaps(start, end) {
			return false
		}
	}
	return true
}

// AllFree reports whether every lane is free for [start, end).
func (t *ConflictTracker) AllFree(lanes []model.Lane, start, end time.Time) bool {
	for _, lane := range lanes {
		if !t.IsFree(lane, start, end) {
			return false
		}
	}
	return true
}

// Book appends [start, end) to lane. Callers must have checked IsFree.
func (t *ConflictTracker) Book(lane model.Lane, start, end time.Time) {
	if !t.valid(lane) {
		return
	}
	t.lanes[lane-1] = append(t.lanes[lane-1], interval{start: start, end: end})
}

// Bookings returns the intervals booked on lane in booking order.
func (t *ConflictTracker) Bookings(lane model.Lane) []model.Booking {
	if !t.valid(lane) {
		return nil
	}
	out := make([]model.Booking, 0, len(t.lanes[lane-1]))
	for _, iv := range t.lanes[lane-1] {
		out = append(out, model.Booking{Lane: lane, Start: iv.start, End: iv.end})
	}
	return out
}

// BookedCount returns the total number of lane bookings in the run.
func (t *ConflictTracker) BookedCount() int {
	n := 0
	for _, ivs := range t.lanes {
		n += len(ivs)
	}
	return n
}
