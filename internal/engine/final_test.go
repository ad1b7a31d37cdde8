package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQualifiers(points ...int) []Qualifier {
	out := make([]Qualifier, len(points))
	for i, p := range points {
		out[i] = Qualifier{
			Rider:       Rider{ID: uint64(i + 1), Plate: uint32(i + 1)},
			TotalPoints: p,
		}
	}
	return out
}

func TestAssignFinalByChoicePreferences(t *testing.T) {
	// Qualifiers arrive in standings order; points already ascending.
	q := testQualifiers(3, 5, 7, 9, 11, 13, 15, 17)
	got, err := AssignFinalByChoice(q)
	require.NoError(t, err)
	require.Len(t, got, 8)

	// Every rider gets their table's first still-free preference:
	// rank 1 -> 4, rank 2 -> 3, rank 3 -> 5, rank 4 -> 6,
	// ranks 5..8 fall back to ascending order over what is left.
	assert.Equal(t, FinalAssignment{RiderID: 1, GateNo: 4, ChoiceOrder: 1}, got[0])
	assert.Equal(t, FinalAssignment{RiderID: 2, GateNo: 3, ChoiceOrder: 2}, got[1])
	assert.Equal(t, FinalAssignment{RiderID: 3, GateNo: 5, ChoiceOrder: 3}, got[2])
	assert.Equal(t, FinalAssignment{RiderID: 4, GateNo: 6, ChoiceOrder: 4}, got[3])
	assert.Equal(t, FinalAssignment{RiderID: 5, GateNo: 1, ChoiceOrder: 5}, got[4])
	assert.Equal(t, FinalAssignment{RiderID: 6, GateNo: 2, ChoiceOrder: 6}, got[5])
	assert.Equal(t, FinalAssignment{RiderID: 7, GateNo: 7, ChoiceOrder: 7}, got[6])
	assert.Equal(t, FinalAssignment{RiderID: 8, GateNo: 8, ChoiceOrder: 8}, got[7])
}

func TestAssignFinalByChoiceExclusivity(t *testing.T) {
	q := testQualifiers(10, 8, 14, 6, 12, 16, 18, 20)
	got, err := AssignFinalByChoice(q)
	require.NoError(t, err)
	require.Len(t, got, 8)

	seen := map[int]bool{}
	for _, a := range got {
		assert.False(t, seen[a.GateNo], "gate %d assigned twice", a.GateNo)
		seen[a.GateNo] = true
	}

	// Best total (rider 4 with 6 points) must choose first.
	assert.Equal(t, uint64(4), got[0].RiderID)
	assert.Equal(t, 1, got[0].ChoiceOrder)
	// First chooser always receives their top preference outright.
	assert.Equal(t, 4, got[0].GateNo)
}

func TestAssignFinalByChoiceSortsByPoints(t *testing.T) {
	q := testQualifiers(9, 4, 7)
	got, err := AssignFinalByChoice(q)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, uint64(2), got[0].RiderID) // 4 points
	assert.Equal(t, uint64(3), got[1].RiderID) // 7 points
	assert.Equal(t, uint64(1), got[2].RiderID) // 9 points
	for i, a := range got {
		assert.Equal(t, i+1, a.ChoiceOrder)
	}
}

func TestAssignFinalByChoiceStableOnEqualPoints(t *testing.T) {
	// Equal totals keep their incoming (standings-resolved) order.
	q := testQualifiers(5, 5, 5)
	got, err := AssignFinalByChoice(q)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got[0].RiderID)
	assert.Equal(t, uint64(2), got[1].RiderID)
	assert.Equal(t, uint64(3), got[2].RiderID)
}

func TestAssignFinalByChoiceTooMany(t *testing.T) {
	q := testQualifiers(1, 2, 3, 4, 5, 6, 7, 8, 9)
	_, err := AssignFinalByChoice(q)
	assert.ErrorIs(t, err, ErrTooManyFinalists)
}

func TestAssignFinalRandom(t *testing.T) {
	finalists := testRoster(8)

	a, err := AssignFinalRandom(finalists, "race-7")
	require.NoError(t, err)
	b, err := AssignFinalRandom(finalists, "race-7")
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed reproduces the same final draw")

	seen := map[int]bool{}
	riders := map[uint64]bool{}
	for _, x := range a {
		assert.False(t, seen[x.GateNo])
		seen[x.GateNo] = true
		riders[x.RiderID] = true
		assert.Zero(t, x.ChoiceOrder, "random draws carry no choice order")
	}
	assert.Len(t, riders, 8)
}

func TestAssignFinalRandomBounds(t *testing.T) {
	_, err := AssignFinalRandom(testRoster(9), "s")
	assert.ErrorIs(t, err, ErrTooManyFinalists)

	got, err := AssignFinalRandom(nil, "s")
	require.NoError(t, err)
	assert.Empty(t, got)
}
