package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func okEntry(round, heat int, rider Rider, pos int, timeMs int64) ScoredEntry {
	return ScoredEntry{
		RoundOrderNo: round,
		RoundLabel:   RoundLabel(round, 4),
		HeatNo:       heat,
		Rider:        rider,
		Result:       &HeatResult{Status: StatusOK, FinishPos: intp(pos), TimeMs: int64p(timeMs)},
	}
}

func badEntry(round, heat int, rider Rider, status ResultStatus) ScoredEntry {
	return ScoredEntry{
		RoundOrderNo: round,
		RoundLabel:   RoundLabel(round, 4),
		HeatNo:       heat,
		Rider:        rider,
		Result:       &HeatResult{Status: status},
	}
}

func TestComputeStandingsPoints(t *testing.T) {
	// The manual's example: 1st, DNF, 3rd over three qualifying motos.
	x := Rider{ID: 1, Plate: 10}
	entries := []ScoredEntry{
		okEntry(1, 1, x, 1, 41000),
		badEntry(2, 1, x, StatusDNF),
		okEntry(3, 1, x, 3, 42500),
	}

	standings, err := ComputeStandings(entries, DefaultPointsTable(), 0)
	require.NoError(t, err)
	require.Len(t, standings, 1)

	s := standings[0]
	assert.Equal(t, 1+9+3, s.TotalPoints)
	assert.Equal(t, 1, s.BestPosition)
	require.NotNil(t, s.BestTimeMs)
	assert.Equal(t, int64(41000), *s.BestTimeMs)
	assert.Equal(t, 3, s.CompletedRounds)
	assert.Equal(t, 1, s.Rank)
	assert.True(t, s.QualifiesForFinal)
	require.Len(t, s.Outcomes, 3)
	assert.Equal(t, 9, s.Outcomes[1].Points)
	assert.Nil(t, s.Outcomes[1].Position)
}

func TestComputeStandingsPenaltyForUnmappedPosition(t *testing.T) {
	// A points table that only maps places 1..3: an OK finish at 5 scores the
	// fixed 9-point penalty.
	table := PointsTable{1: 1, 2: 2, 3: 3}
	x := Rider{ID: 1, Plate: 7}
	standings, err := ComputeStandings([]ScoredEntry{okEntry(1, 1, x, 5, 40000)}, table, 0)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, WorstPlacePoints, standings[0].TotalPoints)
	// The OK finish still counts toward best position.
	assert.Equal(t, 5, standings[0].BestPosition)
}

func TestComputeStandingsExcludesRidersWithoutResults(t *testing.T) {
	raced := Rider{ID: 1, Plate: 1}
	noShow := Rider{ID: 2, Plate: 2}
	entries := []ScoredEntry{
		okEntry(1, 1, raced, 1, 39000),
		{RoundOrderNo: 1, RoundLabel: "M1", HeatNo: 1, Rider: noShow, Result: nil},
	}

	standings, err := ComputeStandings(entries, nil, 0)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, uint64(1), standings[0].Rider.ID)
}

func TestComputeStandingsNeverFinishedStillRanked(t *testing.T) {
	// DNS/DNF/DQ across the board: ranked on penalties, unlike the no-data case.
	x := Rider{ID: 1, Plate: 3}
	entries := []ScoredEntry{
		badEntry(1, 1, x, StatusDNS),
		badEntry(2, 1, x, StatusDQ),
		badEntry(3, 1, x, StatusDNF),
	}
	standings, err := ComputeStandings(entries, nil, 0)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, 27, standings[0].TotalPoints)
	assert.Equal(t, WorstPlacePoints, standings[0].BestPosition)
	assert.Nil(t, standings[0].BestTimeMs)
}

func TestComputeStandingsTieBreakChain(t *testing.T) {
	a := Rider{ID: 1, Plate: 30}
	b := Rider{ID: 2, Plate: 20}
	c := Rider{ID: 3, Plate: 10}

	entries := []ScoredEntry{
		// a: 2+1 = 3 points, best pos 1, best time 40s
		okEntry(1, 1, a, 2, 41000),
		okEntry(2, 1, a, 1, 40000),
		// b: 1+2 = 3 points, best pos 1, best time 39s -> beats a on time
		okEntry(1, 1, b, 1, 39000),
		okEntry(2, 1, b, 2, 41500),
		// c: 1+3 = 4 points -> third on total despite lowest plate
		okEntry(1, 2, c, 1, 38000),
		okEntry(2, 2, c, 3, 44000),
	}

	standings, err := ComputeStandings(entries, DefaultPointsTable(), 0)
	require.NoError(t, err)
	require.Len(t, standings, 3)
	assert.Equal(t, uint64(2), standings[0].Rider.ID)
	assert.Equal(t, uint64(1), standings[1].Rider.ID)
	assert.Equal(t, uint64(3), standings[2].Rider.ID)
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestComputeStandingsPlateTieBreak(t *testing.T) {
	// Identical points, positions and times: the plate number decides.
	a := Rider{ID: 1, Plate: 55}
	b := Rider{ID: 2, Plate: 12}
	entries := []ScoredEntry{
		okEntry(1, 1, a, 1, 40000),
		okEntry(1, 2, b, 1, 40000),
	}
	standings, err := ComputeStandings(entries, nil, 0)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, uint32(12), standings[0].Rider.Plate)
	assert.Equal(t, uint32(55), standings[1].Rider.Plate)
}

func TestComputeStandingsFinalSlots(t *testing.T) {
	entries := make([]ScoredEntry, 0, 10)
	for i := 1; i <= 10; i++ {
		r := Rider{ID: uint64(i), Plate: uint32(i)}
		heat := 1
		pos := i
		if i > 5 {
			heat = 2
			pos = i - 5
		}
		entries = append(entries, okEntry(1, heat, r, pos, int64(40000+i*100)))
	}

	standings, err := ComputeStandings(entries, nil, 0)
	require.NoError(t, err)
	require.Len(t, standings, 10)

	qualified := 0
	for _, s := range standings {
		if s.QualifiesForFinal {
			qualified++
			assert.LessOrEqual(t, s.Rank, FinalSlotCount)
		}
	}
	assert.Equal(t, FinalSlotCount, qualified)

	quals := Qualifiers(standings)
	require.Len(t, quals, FinalSlotCount)
	assert.Equal(t, standings[0].Rider.ID, quals[0].Rider.ID)

	// A shrunk final keeps the predicate honest.
	small, err := ComputeStandings(entries, nil, 4)
	require.NoError(t, err)
	assert.Len(t, Qualifiers(small), 4)
}

func TestComputeStandingsOrderingInvariant(t *testing.T) {
	entries := []ScoredEntry{}
	for i := 1; i <= 12; i++ {
		r := Rider{ID: uint64(i), Plate: uint32(100 - i)}
		heat := (i-1)/8 + 1
		pos := (i-1)%8 + 1
		entries = append(entries,
			okEntry(1, heat, r, pos, int64(39000+i*73)),
			okEntry(2, heat, r, (pos+2)%8+1, int64(40000+i*31)),
		)
	}
	standings, err := ComputeStandings(entries, DefaultPointsTable(), 0)
	require.NoError(t, err)

	for i := 1; i < len(standings); i++ {
		prev, cur := standings[i-1], standings[i]
		require.Less(t, prev.Rank, cur.Rank)
		if prev.TotalPoints != cur.TotalPoints {
			assert.Less(t, prev.TotalPoints, cur.TotalPoints)
			continue
		}
		if prev.BestPosition != cur.BestPosition {
			assert.Less(t, prev.BestPosition, cur.BestPosition)
			continue
		}
		if prev.BestTimeMs != nil && cur.BestTimeMs != nil && *prev.BestTimeMs != *cur.BestTimeMs {
			assert.Less(t, *prev.BestTimeMs, *cur.BestTimeMs)
			continue
		}
		assert.Less(t, prev.Rider.Plate, cur.Rider.Plate)
	}
}

func TestComputeStandingsDuplicatePosition(t *testing.T) {
	a := Rider{ID: 1, Plate: 1}
	b := Rider{ID: 2, Plate: 2}
	entries := []ScoredEntry{
		okEntry(1, 1, a, 1, 40000),
		okEntry(1, 1, b, 1, 40100), // same heat, same position
	}
	_, err := ComputeStandings(entries, nil, 0)
	assert.ErrorIs(t, err, ErrDuplicateFinishPos)

	// Same position in different heats of the same round is fine.
	entries[1].HeatNo = 2
	_, err = ComputeStandings(entries, nil, 0)
	assert.NoError(t, err)
}

func TestComputeStandingsEmptyInput(t *testing.T) {
	standings, err := ComputeStandings(nil, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, standings)
}
