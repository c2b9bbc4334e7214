package model

import "time"

// Reservation is one requested session for a group. PartySize below 4 is a
// lane count, not a head count: a party of 3 asks for 3 lanes. Operators mix
// the two up regularly, so keep this in mind when reading unmet demand.
type Reservation struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty"`
	Group     string     `json:"group" bson:"group" validate:"required,group_id,max=100"`
	StartTime time.Time  `json:"start_time" bson:"start_time" validate:"required"`
	PartySize int        `json:"party_size" bson:"party_size" validate:"max=500"`
	RunID     string     `json:"run_id,omitempty" bson:"run_id,omitempty" validate:"omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" bson:"created_at,omitempty" validate:"omitempty"`
}

type AllocationRequest struct {
	Reservations []Reservation `json:"reservations"`
}
