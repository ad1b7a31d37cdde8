package engine

import (
	"cmp"
	"slices"
)

// ResultStatus is the recorded outcome of one heat entry.
type ResultStatus string

const (
	StatusOK  ResultStatus = "OK"  // finished, has a position and usually a time
	StatusDQ  ResultStatus = "DQ"  // disqualified
	StatusDNS ResultStatus = "DNS" // did not start
	StatusDNF ResultStatus = "DNF" // did not finish
)

// WorstPlacePoints is the fixed penalty applied to every non-OK result and
// to any OK result whose position is missing from the points table.  Place 9
// is not part of the configurable table by contract: it always scores 9.
const WorstPlacePoints = 9

// PointsTable maps a finish place (1..8) to the points it scores.  Lower
// totals are better.
type PointsTable map[int]int

// DefaultPointsTable returns the standard place==points mapping.
func DefaultPointsTable() PointsTable {
	t := make(PointsTable, MaxGates)
	for p := 1; p <= MaxGates; p++ {
		t[p] = p
	}
	return t
}

// HeatResult carries one recorded result.  FinishPos and TimeMs are only
// present for StatusOK entries; they are nil for DQ/DNS/DNF.
type HeatResult struct {
	Status    ResultStatus
	FinishPos *int
	TimeMs    *int64
}

// ScoredEntry is one heat entry of a qualifying round together with its
// recorded result, if any.  Round and heat ordinals identify the heat for
// duplicate-position detection.
type ScoredEntry struct {
	RoundOrderNo int
	RoundLabel   string
	HeatNo       int
	Rider        Rider
	Result       *HeatResult // nil when nothing has been recorded yet
}

// RoundOutcome is one scored round in a rider's standings row.
type RoundOutcome struct {
	RoundLabel string       `json:"moto"`
	Position   *int         `json:"position,omitempty"`
	Points     int          `json:"points"`
	TimeMs     *int64       `json:"time_ms,omitempty"`
	Status     ResultStatus `json:"status"`
}

// Standing is one rider's aggregate over all qualifying rounds.
type Standing struct {
	Rider             Rider          `json:"rider"`
	Outcomes          []RoundOutcome `json:"motos"`
	TotalPoints       int            `json:"total_points"`
	BestPosition      int            `json:"best_position"` // 9 when the rider never finished OK
	BestTimeMs        *int64         `json:"best_time_ms,omitempty"`
	CompletedRounds   int            `json:"completed_motos"`
	Rank              int            `json:"rank"`
	QualifiesForFinal bool           `json:"qualifies_for_final"`
}

type heatKey struct {
	round int
	heat  int
}

// ComputeStandings aggregates the recorded qualifying results into a ranked
// table.  Scoring: an OK finish at position p earns points[p], or the fixed
// 9-point penalty when p is absent from the table; any non-OK result earns 9.
// Best position and best time only update from OK results.  Riders without a
// single recorded result are excluded entirely — no data, no rank — which is
// different from a rider who raced but never finished OK and is ranked on
// penalties.
//
// Ordering: total points ascending, then best position, then best time (only
// compared when both riders have one), then plate number.  The first
// finalSlots riders are flagged as qualified for the final; pass 0 to use the
// default of 8.
func ComputeStandings(entries []ScoredEntry, points PointsTable, finalSlots int) ([]Standing, error) {
	if finalSlots <= 0 {
		finalSlots = FinalSlotCount
	}
	if points == nil {
		points = DefaultPointsTable()
	}

	byRider := make(map[uint64]*Standing)
	order := make([]uint64, 0, len(entries))
	takenPos := make(map[heatKey]map[int]bool)

	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		st, ok := byRider[e.Rider.ID]
		if !ok {
			st = &Standing{Rider: e.Rider, BestPosition: WorstPlacePoints}
			byRider[e.Rider.ID] = st
			order = append(order, e.Rider.ID)
		}

		pts := WorstPlacePoints
		if e.Result.Status == StatusOK && e.Result.FinishPos != nil {
			pos := *e.Result.FinishPos
			key := heatKey{round: e.RoundOrderNo, heat: e.HeatNo}
			if takenPos[key] == nil {
				takenPos[key] = make(map[int]bool)
			}
			if takenPos[key][pos] {
				// Two OK results claim the same position: results were written
				// outside the intended path.  Refuse to rank on bad data.
				return nil, ErrDuplicateFinishPos
			}
			takenPos[key][pos] = true

			if p, ok := points[pos]; ok {
				pts = p
			}
			if pos < st.BestPosition {
				st.BestPosition = pos
			}
			if e.Result.TimeMs != nil && (st.BestTimeMs == nil || *e.Result.TimeMs < *st.BestTimeMs) {
				t := *e.Result.TimeMs
				st.BestTimeMs = &t
			}
		}

		st.Outcomes = append(st.Outcomes, RoundOutcome{
			RoundLabel: e.RoundLabel,
			Position:   e.Result.FinishPos,
			Points:     pts,
			TimeMs:     e.Result.TimeMs,
			Status:     e.Result.Status,
		})
		st.TotalPoints += pts
		st.CompletedRounds++
	}

	standings := make([]Standing, 0, len(order))
	for _, id := range order {
		standings = append(standings, *byRider[id])
	}

	slices.SortStableFunc(standings, func(a, b Standing) int {
		if c := cmp.Compare(a.TotalPoints, b.TotalPoints); c != 0 {
			return c
		}
		if c := cmp.Compare(a.BestPosition, b.BestPosition); c != 0 {
			return c
		}
		if a.BestTimeMs != nil && b.BestTimeMs != nil {
			if c := cmp.Compare(*a.BestTimeMs, *b.BestTimeMs); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Rider.Plate, b.Rider.Plate)
	})

	for i := range standings {
		standings[i].Rank = i + 1
		standings[i].QualifiesForFinal = i+1 <= finalSlots
	}
	return standings, nil
}

// Qualifiers returns the riders flagged for the final, in standings order,
// ready to be handed to the final assignment.
func Qualifiers(standings []Standing) []Qualifier {
	out := make([]Qualifier, 0, FinalSlotCount)
	for _, s := range standings {
		if s.QualifiesForFinal {
			out = append(out, Qualifier{Rider: s.Rider, TotalPoints: s.TotalPoints})
		}
	}
	return out
}
