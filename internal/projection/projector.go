// Package projection renders allocation results as a time-of-day by lane grid.
package projection

import (
	"errors"
	"fmt"
	"time"

	"lanesched/internal/allocation"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

const (
	DefaultStart    = "10:00"
	DefaultSlots    = 28
	DefaultInterval = 30 * time.Minute

	clockLayout = "15:04"
)

var ErrInvalidRange = errors.New("slot range must fit inside one day")

type Options struct {
	Start     string
	Slots     int
	Interval  time.Duration
	LaneCount int
	// Location is the zone rows are labelled in. Nil means UTC.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		Start:     DefaultStart,
		Slots:     DefaultSlots,
		Interval:  DefaultInterval,
		LaneCount: allocation.DefaultLaneCount,
		Location:  time.UTC,
	}
}

// Projector maps assignments onto slot rows. It holds no per-run state and is
// safe for concurrent use.
type Projector struct {
	opts  Options
	log   *logger.Logger
	first time.Duration
	lanes []model.Lane
}

func New(opts Options, log *logger.Logger) (*Projector, error) {
	start, err := time.Parse(clockLayout, opts.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid slot start %q: %w", opts.Start, err)
	}
	if opts.Slots <= 0 || opts.Interval <= 0 {
		return nil, fmt.Errorf("%w, got %d slots of %s", ErrInvalidRange, opts.Slots, opts.Interval)
	}
	first := time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute
	if first+time.Duration(opts.Slots-1)*opts.Interval >= 24*time.Hour {
		return nil, fmt.Errorf("%w, %d slots from %s", ErrInvalidRange, opts.Slots, opts.Start)
	}
	if opts.LaneCount <= 0 {
		return nil, allocation.ErrInvalidTopology
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if log == nil {
		log = logger.Discard()
	}

	lanes := make([]model.Lane, opts.LaneCount)
	for i := range lanes {
		lanes[i] = model.Lane(i + 1)
	}
	return &Projector{opts: opts, log: log, first: first, lanes: lanes}, nil
}

// Project marks each assignment's group on its start row for every lane it
// holds. Assignments that start between rows, before the first row or after
// the last one, or that name a lane outside the pool, are reported to sink as
// OutOfRange and left off the grid. Compact mode drops rows with no occupied
// lane.
func (p *Projector) Project(assignments []model.Assignment, mode model.ScheduleMode, sink allocation.EventSink) model.Schedule {
	if !mode.Valid() {
		mode = model.ScheduleFull
	}

	rows := make([]model.ScheduleRow, p.opts.Slots)
	for i := range rows {
		rows[i] = model.ScheduleRow{
			Time:  p.label(i),
			Cells: make([]string, len(p.lanes)),
		}
	}

	for _, asg := range assignments {
		row, ok := p.row(asg.StartTime)
		if !ok {
			p.outOfRange(asg, "start time outside the schedule", sink)
			continue
		}
		if bad, ok := p.foreignLane(asg.Lanes); ok {
			p.outOfRange(asg, fmt.Sprintf("lane %d outside the pool", bad), sink)
			continue
		}
		for _, lane := range asg.Lanes {
			rows[row].Cells[lane-1] = asg.Group
		}
	}

	if mode == model.ScheduleCompact {
		kept := rows[:0]
		for _, r := range rows {
			if r.Occupied() {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	return model.Schedule{
		Mode:  mode,
		Lanes: append([]model.Lane(nil), p.lanes...),
		Rows:  rows,
	}
}

func (p *Projector) label(i int) string {
	offset := p.first + time.Duration(i)*p.opts.Interval
	return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset).Format(clockLayout)
}

// row returns the index of the row that starts exactly at t's local time of day.
func (p *Projector) row(t time.Time) (int, bool) {
	local := t.In(p.opts.Location)
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	offset := clock - p.first
	if offset < 0 || offset%p.opts.Interval != 0 {
		return 0, false
	}
	idx := int(offset / p.opts.Interval)
	if idx >= p.opts.Slots {
		return 0, false
	}
	return idx, true
}

func (p *Projector) foreignLane(lanes []model.Lane) (model.Lane, bool) {
	for _, l := range lanes {
		if l < 1 || int(l) > len(p.lanes) {
			return l, true
		}
	}
	return 0, false
}

func (p *Projector) outOfRange(asg model.Assignment, reason string, sink allocation.EventSink) {
	p.log.Warn("Assignment left off schedule",
		"group", asg.Group,
		"start_time", asg.StartTime,
		"reason", reason,
	)
	if sink == nil {
		return
	}
	sink.Emit(model.Event{
		Kind:      model.EventOutOfRange,
		Group:     asg.Group,
		StartTime: asg.StartTime,
		Assigned:  len(asg.Lanes),
		Reason:    reason,
	})
}
