package allocation

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lanesched/pkg/model"
)

var day = time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func res(group string, start time.Time, size int) model.Reservation {
	return model.Reservation{Group: group, StartTime: start, PartySize: size}
}

func newTestAllocator(t *testing.T) (*Allocator, *Collector) {
	t.Helper()
	events := NewCollector()
	a, err := New(DefaultOptions(), nil, events)
	require.NoError(t, err)
	return a, events
}

func lanesOf(assignments []model.Assignment) map[string][]model.Lane {
	out := make(map[string][]model.Lane, len(assignments))
	for _, asg := range assignments {
		out[asg.Group+"@"+asg.StartTime.Format("15:04")] = asg.Lanes
	}
	return out
}

func TestNew_ValidatesOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.SessionDuration = 0
	_, err := New(opts, nil, nil)
	require.ErrorIs(t, err, ErrInvalidDuration)

	opts = DefaultOptions()
	opts.Topology = Topology{}
	_, err = New(opts, nil, nil)
	require.ErrorIs(t, err, ErrInvalidTopology)
}

func TestAllocate_HalfHourPools(t *testing.T) {
	a, events := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("acme", at(10, 0), 12),
		res("globex", at(10, 30), 12),
	})

	want := []model.Assignment{
		{Group: "acme", StartTime: at(10, 0), EndTime: at(10, 55), Lanes: []model.Lane{1, 2}},
		{Group: "globex", StartTime: at(10, 30), EndTime: at(11, 25), Lanes: []model.Lane{5, 6}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, events.Events())
}

func TestAllocate_PrefersIntactFacingPair(t *testing.T) {
	a, _ := newTestAllocator(t)

	got := lanesOf(a.Allocate([]model.Reservation{
		res("aaa", at(10, 0), 1),
		res("bbb", at(10, 0), 12),
	}))

	require.Equal(t, []model.Lane{1}, got["aaa@10:00"])
	require.Equal(t, []model.Lane{3, 4}, got["bbb@10:00"])
}

func TestAllocate_NeedOfThreeTakesPairPlusSingle(t *testing.T) {
	a, _ := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{res("trio", at(10, 0), 3)})

	require.Len(t, got, 1)
	require.Equal(t, []model.Lane{1, 2, 3}, got[0].Lanes)
	require.Equal(t, 3, a.Tracker().BookedCount())
}

func TestAllocate_FallsBackToSingleLanes(t *testing.T) {
	a, _ := newTestAllocator(t)

	got := lanesOf(a.Allocate([]model.Reservation{
		res("a", at(10, 0), 1),
		res("b", at(10, 0), 1),
		res("c", at(10, 0), 1),
		res("d", at(10, 0), 12),
	}))

	require.Equal(t, []model.Lane{1}, got["a@10:00"])
	require.Equal(t, []model.Lane{2}, got["b@10:00"])
	require.Equal(t, []model.Lane{3}, got["c@10:00"])
	_, ok := got["d@10:00"]
	require.False(t, ok, "only one lane left for a party needing two")
}

func TestAllocate_NoPartialBooking(t *testing.T) {
	a, events := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("a", at(10, 0), 3),
		res("b", at(10, 0), 12),
	})

	require.Len(t, got, 1)
	require.Equal(t, []model.Lane{1, 2, 3}, got[0].Lanes)
	require.Empty(t, a.Tracker().Bookings(4), "lane 4 must stay free when b is refused")

	require.Equal(t, []model.Event{{
		Kind:      model.EventUnmetDemand,
		Group:     "b",
		StartTime: at(10, 0),
		Requested: 2,
		Assigned:  1,
	}}, events.Events())
}

func TestAllocate_HugePartiesAreUnmet(t *testing.T) {
	for _, size := range []int{1 << 40, math.MaxInt} {
		a, events := newTestAllocator(t)

		got := a.Allocate([]model.Reservation{
			res("huge", at(10, 0), size),
			res("small", at(10, 0), 4),
		})

		need, err := LanesNeeded(size)
		require.NoError(t, err)
		require.Len(t, got, 1, "party size %d", size)
		require.Equal(t, "small", got[0].Group)
		require.Equal(t, []model.Event{{
			Kind:      model.EventUnmetDemand,
			Group:     "huge",
			StartTime: at(10, 0),
			Requested: need,
			Assigned:  4,
		}}, events.Events())
	}
}

func TestAllocate_ContinuityKeepsLanes(t *testing.T) {
	a, events := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("zeta", at(10, 0), 1),
		res("zeta", at(10, 0), 1),
		res("acme", at(10, 0), 12),
		res("acme", at(11, 0), 12),
		res("aaa", at(11, 0), 12),
	})

	require.Empty(t, events.Events())
	byKey := map[string]model.Assignment{}
	for _, asg := range got {
		if asg.Group == "zeta" {
			continue
		}
		byKey[asg.Group+"@"+asg.StartTime.Format("15:04")] = asg
	}

	require.Equal(t, []model.Lane{1, 2}, byKey["acme@10:00"].Lanes)
	require.False(t, byKey["acme@10:00"].Continued)

	require.Equal(t, []model.Lane{1, 2}, byKey["acme@11:00"].Lanes)
	require.True(t, byKey["acme@11:00"].Continued)

	// aaa sorts before acme but the continuation is placed first.
	require.Equal(t, []model.Lane{3, 4}, byKey["aaa@11:00"].Lanes)
}

func TestAllocate_SizeChangeForfeitsContinuity(t *testing.T) {
	a, _ := newTestAllocator(t)

	got := lanesOf(a.Allocate([]model.Reservation{
		res("acme", at(10, 0), 12),
		res("beta", at(10, 0), 12),
		res("beta", at(11, 0), 6),
	}))

	require.Equal(t, []model.Lane{3, 4}, got["beta@10:00"])
	require.Equal(t, []model.Lane{1}, got["beta@11:00"])
}

func TestAllocate_GapBeyondToleranceIsFresh(t *testing.T) {
	a, _ := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("acme", at(10, 0), 12),
		res("acme", at(12, 0), 12),
	})

	require.Len(t, got, 2)
	require.False(t, got[1].Continued)
}

func TestAllocate_InvalidStartTime(t *testing.T) {
	a, events := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("late", at(10, 15), 6),
		res("ok", at(10, 0), 6),
	})

	require.Len(t, got, 1)
	require.Equal(t, "ok", got[0].Group)
	require.Equal(t, 1, events.Count(model.EventInvalidStartTime))
	require.Equal(t, "late", events.Events()[0].Group)
}

func TestAllocate_InvalidReservations(t *testing.T) {
	a, events := newTestAllocator(t)

	got := a.Allocate([]model.Reservation{
		res("", at(10, 0), 6),
		res("   ", at(10, 0), 6),
		res("nobody", at(10, 0), 0),
		res("negative", at(10, 0), -3),
	})

	require.Empty(t, got)
	require.Equal(t, 4, events.Count(model.EventInvalidReservation))
	require.Zero(t, a.Tracker().BookedCount())
}

func TestAllocate_NoDoubleBooking(t *testing.T) {
	a, _ := newTestAllocator(t)

	var input []model.Reservation
	groups := []string{"a", "b", "c", "d", "e", "f"}
	sizes := []int{1, 2, 3, 6, 12, 24, 5, 13}
	for slot := 0; slot < 12; slot++ {
		start := at(10, 0).Add(time.Duration(slot) * 30 * time.Minute)
		for i, g := range groups {
			input = append(input, res(g, start, sizes[(slot+i)%len(sizes)]))
		}
	}

	got := a.Allocate(input)
	require.NotEmpty(t, got)

	type span struct{ start, end time.Time }
	perLane := map[model.Lane][]span{}
	for _, asg := range got {
		for _, lane := range asg.Lanes {
			for _, other := range perLane[lane] {
				overlap := other.start.Before(asg.EndTime) && other.end.After(asg.StartTime)
				require.False(t, overlap, "lane %d double booked at %s", lane, asg.StartTime)
			}
			perLane[lane] = append(perLane[lane], span{asg.StartTime, asg.EndTime})
		}
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	input := []model.Reservation{
		res("delta", at(10, 0), 12),
		res("alpha", at(10, 30), 7),
		res("charlie", at(10, 0), 3),
		res("bravo", at(10, 0), 1),
		res("alpha", at(11, 30), 7),
		res("echo", at(11, 0), 24),
	}
	reordered := []model.Reservation{input[5], input[3], input[1], input[0], input[4], input[2]}

	first, _ := newTestAllocator(t)
	second, _ := newTestAllocator(t)
	third, _ := newTestAllocator(t)

	a := first.Allocate(input)
	b := second.Allocate(input)
	c := third.Allocate(reordered)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same input produced different output (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a, c); diff != "" {
		t.Errorf("input order changed output (-first +reordered):\n%s", diff)
	}
}

func TestAllocate_IncrementalBatchesShareState(t *testing.T) {
	a, events := newTestAllocator(t)

	a.Allocate([]model.Reservation{res("acme", at(10, 0), 24)})
	got := a.Allocate([]model.Reservation{res("globex", at(10, 0), 6)})

	require.Empty(t, got)
	require.Equal(t, 1, events.Count(model.EventUnmetDemand))
}

func TestAllocate_ReadsMinutesInLocation(t *testing.T) {
	opts := DefaultOptions()
	opts.Location = time.FixedZone("IST", 5*3600+30*60)
	a, err := New(opts, nil, nil)
	require.NoError(t, err)

	// 04:30 UTC is 10:00 local.
	got := a.Allocate([]model.Reservation{res("acme", at(4, 30), 12)})

	require.Len(t, got, 1)
	require.Equal(t, []model.Lane{1, 2}, got[0].Lanes)
}
