package model

import "strconv"

// Lane identifies one bookable lane, numbered from 1.
type Lane int

func (l Lane) String() string {
	return strconv.Itoa(int(l))
}

// FacingPair is two lanes that are booked together for larger parties.
type FacingPair [2]Lane

func (p FacingPair) Lanes() []Lane {
	return []Lane{p[0], p[1]}
}
