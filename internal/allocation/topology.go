package allocation

import (
	"fmt"
	"time"

	"lanesched/pkg/model"
)

const DefaultLaneCount = 8

// Topology describes the lane pool. Lanes are paired (1,2), (3,4), ... and the
// first half of the pool serves sessions starting on the hour while the second
// half serves sessions starting on the half hour.
type Topology struct {
	laneCount int
	pairs     []model.FacingPair
}

func DefaultTopology() Topology {
	t, _ := NewTopology(DefaultLaneCount)
	return t
}

func NewTopology(laneCount int) (Topology, error) {
	if laneCount <= 0 || laneCount%4 != 0 {
		return Topology{}, fmt.Errorf("%w, got %d", ErrInvalidTopology, laneCount)
	}
	pairs := make([]model.FacingPair, 0, laneCount/2)
	for l := 1; l < laneCount; l += 2 {
		pairs = append(pairs, model.FacingPair{model.Lane(l), model.Lane(l + 1)})
	}
	return Topology{laneCount: laneCount, pairs: pairs}, nil
}

func (t Topology) LaneCount() int {
	return t.laneCount
}

func (t Topology) Lanes() []model.Lane {
	lanes := make([]model.Lane, t.laneCount)
	for i := range lanes {
		lanes[i] = model.Lane(i + 1)
	}
	return lanes
}

func (t Topology) Pairs() []model.FacingPair {
	return append([]model.FacingPair(nil), t.pairs...)
}

// Candidates returns the facing pairs and single lanes, both in ascending
// order, eligible for a session starting at start. ok is false when the start
// minute is neither 0 nor 30.
func (t Topology) Candidates(start time.Time) (pairs []model.FacingPair, lanes []model.Lane, ok bool) {
	half := len(t.pairs) / 2
	switch start.Minute() {
	case 0:
		pairs = t.pairs[:half]
	case 30:
		pairs = t.pairs[half:]
	default:
		return nil, nil, false
	}
	lanes = make([]model.Lane, 0, len(pairs)*2)
	for _, p := range pairs {
		lanes = append(lanes, p[0], p[1])
	}
	return append([]model.FacingPair(nil), pairs...), lanes, true
}
