package engine

import (
	"cmp"
	"slices"
)

// FinalSlotCount is the default number of riders that qualify for the final.
// It equals the lane count but is its own named value so callers can run a
// smaller final without touching the track geometry.
const FinalSlotCount = 8

// gatePreferences maps a standings rank to the lane order that rider will
// pick from during gate choice.  Rank 1 works outward from the most central
// lanes; lower ranks get progressively less favourable patterns.  Ranks
// beyond the table fall back to plain ascending order.
var gatePreferences = map[int][]int{
	1: {4, 5, 3, 6, 2, 7, 1, 8},
	2: {3, 4, 5, 2, 6, 1, 7, 8},
	3: {5, 4, 6, 3, 7, 2, 8, 1},
	4: {6, 5, 4, 7, 3, 8, 2, 1},
}

var ascendingGates = []int{1, 2, 3, 4, 5, 6, 7, 8}

// Qualifier is a rider admitted to the final together with the qualifying
// total that determines gate-choice order.
type Qualifier struct {
	Rider       Rider
	TotalPoints int
}

// FinalAssignment binds one finalist to a lane.  ChoiceOrder records the
// selection sequence (1 chose first); it is zero for random draws, which have
// no meaningful order.
type FinalAssignment struct {
	RiderID     uint64
	GateNo      int
	ChoiceOrder int
}

// AssignFinalRandom draws final lanes the same way as any qualifying heat:
// shuffle the finalists and deal a gate permutation, both under dedicated
// "-final" sub-seeds so the draw is independent of the qualifying rounds.
func AssignFinalRandom(finalists []Rider, seed string) ([]FinalAssignment, error) {
	if len(finalists) > MaxGates {
		return nil, ErrTooManyFinalists
	}
	if len(finalists) == 0 {
		return nil, nil
	}
	shuffled := shuffleRiders(finalists, seed+"-final")
	gates := GateSequence(len(shuffled), seed+"-final-gates")
	out := make([]FinalAssignment, len(shuffled))
	for i, r := range shuffled {
		out[i] = FinalAssignment{RiderID: r.ID, GateNo: gates[i]}
	}
	return out, nil
}

// AssignFinalByChoice performs the ranking-based gate choice: finalists pick
// lanes in ascending order of qualifying points (best rider first), each
// taking the first lane from their rank's preference order that is still
// free.  The assignment is greedy and fully deterministic — no randomness,
// no backtracking.
func AssignFinalByChoice(qualifiers []Qualifier) ([]FinalAssignment, error) {
	if len(qualifiers) > MaxGates {
		return nil, ErrTooManyFinalists
	}
	sorted := make([]Qualifier, len(qualifiers))
	copy(sorted, qualifiers)
	// Stable on purpose: callers pass qualifiers in standings order, so riders
	// on equal points keep their standings-resolved ordering.
	slices.SortStableFunc(sorted, func(a, b Qualifier) int {
		return cmp.Compare(a.TotalPoints, b.TotalPoints)
	})

	available := make(map[int]bool, MaxGates)
	for g := 1; g <= MaxGates; g++ {
		available[g] = true
	}

	out := make([]FinalAssignment, 0, len(sorted))
	for i, q := range sorted {
		rank := i + 1
		prefs, ok := gatePreferences[rank]
		if !ok {
			prefs = ascendingGates
		}
		chosen := 0
		for _, g := range prefs {
			if available[g] {
				chosen = g
				break
			}
		}
		if chosen == 0 {
			// Preference tables cover all 8 gates, so with <=8 qualifiers a
			// free gate always exists.
			return nil, ErrTooManyFinalists
		}
		delete(available, chosen)
		out = append(out, FinalAssignment{RiderID: q.Rider.ID, GateNo: chosen, ChoiceOrder: rank})
	}
	return out, nil
}
