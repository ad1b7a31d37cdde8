package engine

import "fmt"

// Round count limits for one race.  The last round is always the final.
const (
	MinRounds = 3
	MaxRounds = 6
)

// Stage classifies a round.  It replaces the string round keys ("M1", "M2",
// "Final") used by older builds of this system with a closed type; the legacy
// labels are still rendered for persistence and display via RoundLabel.
type Stage int

const (
	// StageQualifying marks rounds 1..N-1 whose results feed the standings.
	StageQualifying Stage = iota
	// StageFinal marks round N.  Final results never count toward the
	// qualifying standings.
	StageFinal
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	if s == StageFinal {
		return "Final"
	}
	return "Qualifying"
}

// RoundLabel renders the legacy round key for a given ordinal: "M1".."M5" for
// qualifying rounds and "Final" for the last round.
func RoundLabel(orderNo, roundCount int) string {
	if orderNo == roundCount {
		return "Final"
	}
	return fmt.Sprintf("M%d", orderNo)
}

// Rider is the slice of competitor data the engine needs: identity for the
// plan output, plate as the ultimate tie-break key, names and club for
// display in derived views.  Riders are treated as immutable during a build.
type Rider struct {
	ID        uint64
	Plate     uint32
	FirstName string
	LastName  string
	Club      string
}

// Entry assigns one rider to one lane within a heat.
type Entry struct {
	RiderID uint64
	GateNo  int
}

// Heat groups at most MaxGates entries racing together.  HeatNo is 1-based
// within the round.
type Heat struct {
	HeatNo  int
	Entries []Entry
}

// Round is one stage of a race with its heats in order.
type Round struct {
	OrderNo int // 1-based position within the race
	Stage   Stage
	Label   string // legacy key: "M1".."M5" or "Final"
	Heats   []Heat
}

// Plan is the full build output for one race: every round, heat and lane
// assignment, ready to be persisted by the caller.
type Plan struct {
	Seed       string
	RoundCount int
	Rounds     []Round
}

// BuildPlan partitions the roster into heats with lane assignments for every
// round of a race.  The roster must already be filtered to confirmed
// registrations and ordered by manual seed then surname.  All randomness is a
// pure function of the seed: the roster is reshuffled per round with the
// sub-seed "<seed>-round-<n>" and each heat draws its lanes from an
// independent gate sub-seed, so identical inputs reproduce an identical plan.
func BuildPlan(roster []Rider, roundCount int, seed string) (*Plan, error) {
	if roundCount < MinRounds || roundCount > MaxRounds {
		return nil, ErrRoundCount
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}

	plan := &Plan{Seed: seed, RoundCount: roundCount, Rounds: make([]Round, 0, roundCount)}
	for orderNo := 1; orderNo <= roundCount; orderNo++ {
		stage := StageQualifying
		if orderNo == roundCount {
			stage = StageFinal
		}
		shuffled := shuffleRiders(roster, fmt.Sprintf("%s-round-%d", seed, orderNo))
		plan.Rounds = append(plan.Rounds, Round{
			OrderNo: orderNo,
			Stage:   stage,
			Label:   RoundLabel(orderNo, roundCount),
			Heats:   partitionHeats(shuffled, seed, orderNo),
		})
	}
	return plan, nil
}

// shuffleRiders returns a reshuffled copy of the roster.  Fisher–Yates with
// the same index boundary as the gate draw, driven by its own Source so the
// rider shuffle never perturbs the gate sequences.
func shuffleRiders(roster []Rider, subSeed string) []Rider {
	rng := NewSource(subSeed)
	out := make([]Rider, len(roster))
	copy(out, roster)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// partitionHeats splits an already shuffled rider list into consecutive
// chunks of at most MaxGates, one heat per chunk.  A chunk shorter than the
// lane count draws from a correspondingly shorter gate permutation, so small
// heats use lanes 1..len without gaps.
func partitionHeats(riders []Rider, seed string, orderNo int) []Heat {
	heatCount := (len(riders) + MaxGates - 1) / MaxGates
	heats := make([]Heat, 0, heatCount)
	for heatNo := 1; heatNo <= heatCount; heatNo++ {
		lo := (heatNo - 1) * MaxGates
		hi := lo + MaxGates
		if hi > len(riders) {
			hi = len(riders)
		}
		chunk := riders[lo:hi]
		gates := GateSequence(len(chunk), gateSubSeed(seed, orderNo, heatNo))
		entries := make([]Entry, len(chunk))
		for i, r := range chunk {
			entries[i] = Entry{RiderID: r.ID, GateNo: gates[i]}
		}
		heats = append(heats, Heat{HeatNo: heatNo, Entries: entries})
	}
	return heats
}

// gateSubSeed combines the race seed with round and heat ordinals so every
// heat's lane draw is independent and reproducible.
func gateSubSeed(seed string, orderNo, heatNo int) string {
	return fmt.Sprintf("%s-r%d-h%d-gates", seed, orderNo, heatNo)
}

// Validate checks the structural invariants of a plan before it is handed to
// the persistence layer: heat capacity and unique gate numbers within every
// heat.  Plans produced by BuildPlan always pass; the check exists for plans
// that were assembled elsewhere.
func (p *Plan) Validate() error {
	for _, round := range p.Rounds {
		for _, heat := range round.Heats {
			if len(heat.Entries) > MaxGates {
				return fmt.Errorf("round %d heat %d: %d entries exceed %d gates",
					round.OrderNo, heat.HeatNo, len(heat.Entries), MaxGates)
			}
			seen := make(map[int]bool, len(heat.Entries))
			for _, e := range heat.Entries {
				if e.GateNo < 1 || e.GateNo > MaxGates || seen[e.GateNo] {
					return fmt.Errorf("round %d heat %d gate %d: %w",
						round.OrderNo, heat.HeatNo, e.GateNo, ErrDuplicateGate)
				}
				seen[e.GateNo] = true
			}
		}
	}
	return nil
}
