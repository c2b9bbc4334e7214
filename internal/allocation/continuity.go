package allocation

import (
	"time"

	"lanesched/pkg/model"
)

const DefaultContinuityTolerance = 5 * time.Minute

// ContinuityRecord is the most recent assignment of a group.
type ContinuityRecord struct {
	End   time.Time
	Lanes []model.Lane
}

// ContinuityResolver decides whether a group may keep the lanes of its
// previous session. Records are overwritten on every new assignment and never
// removed; the tolerance check makes stale records harmless.
type ContinuityResolver struct {
	tolerance time.Duration
	records   map[string]ContinuityRecord
}

func NewContinuityResolver(tolerance time.Duration) *ContinuityResolver {
	if tolerance < 0 {
		tolerance = -tolerance
	}
	return &ContinuityResolver{
		tolerance: tolerance,
		records:   make(map[string]ContinuityRecord),
	}
}

func (r *ContinuityResolver) Record(group string) (ContinuityRecord, bool) {
	rec, ok := r.records[group]
	return rec, ok
}

// Continues reports whether a session for group starting at start is close
// enough to the group's previous session to count as a continuation. It does
// not look at lane availability or size.
func (r *ContinuityResolver) Continues(group string, start time.Time) bool {
	rec, ok := r.records[group]
	if !ok {
		return false
	}
	gap := start.Sub(rec.End)
	if gap < 0 {
		gap = -gap
	}
	return gap <= r.tolerance
}

// Resolve returns the group's previous lanes when all of these hold: the
// session continues the previous one, it needs exactly as many lanes, and
// every previous lane is free for [start, end). A size change forfeits
// continuity entirely.
func (r *ContinuityResolver) Resolve(group string, start, end time.Time, lanesNeeded int, tracker *ConflictTracker) ([]model.Lane, bool) {
	if !r.Continues(group, start) {
		return nil, false
	}
	rec := r.records[group]
	if len(rec.Lanes) != lanesNeeded {
		return nil, false
	}
	if !tracker.AllFree(rec.Lanes, start, end) {
		return nil, false
	}
	return append([]model.Lane(nil), rec.Lanes...), true
}

// Remember overwrites the group's record.
func (r *ContinuityResolver) Remember(group string, end time.Time, lanes []model.Lane) {
	r.records[group] = ContinuityRecord{
		End:   end,
		Lanes: append([]model.Lane(nil), lanes...),
	}
}
