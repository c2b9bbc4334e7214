package model

import "time"

const (
	RunSourceRequest = "request"
	RunSourceDay     = "day"
	RunSourceStream  = "stream"
)

// Run is the persisted outcome of allocating one batch of reservations.
type Run struct {
	ID          string       `json:"id" bson:"_id"`
	Source      string       `json:"source" bson:"source"`
	Day         string       `json:"day,omitempty" bson:"day,omitempty"`
	Settings    RunSettings  `json:"settings" bson:"settings"`
	Assignments []Assignment `json:"assignments" bson:"assignments"`
	Events      []Event      `json:"events" bson:"events"`
	Stats       RunStats     `json:"stats" bson:"stats"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
}

type RunSettings struct {
	SessionMinutes   int    `json:"session_minutes" bson:"session_minutes"`
	ToleranceMinutes int    `json:"tolerance_minutes" bson:"tolerance_minutes"`
	LaneCount        int    `json:"lane_count" bson:"lane_count"`
	SlotStart        string `json:"slot_start" bson:"slot_start"`
	SlotCount        int    `json:"slot_count" bson:"slot_count"`
	TimeZone         string `json:"time_zone" bson:"time_zone"`
}

type RunStats struct {
	Reservations       int `json:"reservations" bson:"reservations"`
	Assigned           int `json:"assigned" bson:"assigned"`
	Continued          int `json:"continued" bson:"continued"`
	LanesBooked        int `json:"lanes_booked" bson:"lanes_booked"`
	InvalidStartTime   int `json:"invalid_start_time" bson:"invalid_start_time"`
	InvalidReservation int `json:"invalid_reservation" bson:"invalid_reservation"`
	UnmetDemand        int `json:"unmet_demand" bson:"unmet_demand"`
	OutOfRange         int `json:"out_of_range" bson:"out_of_range"`
}
