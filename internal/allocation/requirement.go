package allocation

const (
	// PersonsPerLane is the head count one lane holds.
	PersonsPerLane = 6

	// headcountThreshold is the smallest party size read as a head count.
	// Anything below it is taken as a literal lane count.
	headcountThreshold = 4
)

// LanesNeeded derives the number of lanes a reservation requires.
//
// Party sizes of 4 and up are head counts and round up to whole lanes of six
// people. Party sizes 1 to 3 are lane counts as entered by the operator, so a
// "party" of 3 needs 3 lanes while a party of 4 needs 1. This overload comes
// from how reservations are recorded upstream and is kept deliberately.
func LanesNeeded(partySize int) (int, error) {
	if partySize < 1 {
		return 0, ErrInvalidPartySize
	}
	if partySize < headcountThreshold {
		return partySize, nil
	}
	lanes := partySize / PersonsPerLane
	if partySize%PersonsPerLane != 0 {
		lanes++
	}
	return lanes, nil
}
