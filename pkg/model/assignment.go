package model

import "time"

// Booking is one occupied [Start, End) interval on a lane.
type Booking struct {
	Lane  Lane      `json:"lane" bson:"lane"`
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Overlaps reports whether the half-open intervals share any instant.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

type Assignment struct {
	Group     string    `json:"group" bson:"group"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	Lanes     []Lane    `json:"lanes" bson:"lanes"`
	Continued bool      `json:"continued" bson:"continued"`
}
