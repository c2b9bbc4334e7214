package sanitizer

import (
	"time"

	"lanesched/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var groupPipeline = Pipeline{
	stripControl,
	TrimAndNormalize,
}

// NormalizeGroup is the canonical form of a group identifier, used both for
// continuity matching and for slot ordering.
func NormalizeGroup(group string) string {
	return groupPipeline.Apply(group)
}

// NormalizeReservation canonicalizes the group and drops sub-second noise
// from the start time. Party size is left alone so invalid sizes still
// surface as diagnostics.
func NormalizeReservation(r model.Reservation) model.Reservation {
	r.Group = NormalizeGroup(r.Group)
	r.StartTime = r.StartTime.Truncate(time.Second)
	return r
}

// NormalizeReservations returns a normalized copy; the input is not modified.
func NormalizeReservations(in []model.Reservation) []model.Reservation {
	out := make([]model.Reservation, len(in))
	for i, r := range in {
		out[i] = NormalizeReservation(r)
	}
	return out
}
