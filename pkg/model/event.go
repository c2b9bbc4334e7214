package model

import "time"

type EventKind string

const (
	EventInvalidStartTime   EventKind = "invalid_start_time"
	EventUnmetDemand        EventKind = "unmet_demand"
	EventInvalidReservation EventKind = "invalid_reservation"
	EventOutOfRange         EventKind = "out_of_range"
)

// Event is a non-fatal diagnostic raised while allocating or projecting.
type Event struct {
	Kind      EventKind `json:"kind" bson:"kind"`
	Group     string    `json:"group" bson:"group"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	Requested int       `json:"requested,omitempty" bson:"requested,omitempty"`
	Assigned  int       `json:"assigned,omitempty" bson:"assigned,omitempty"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
}
