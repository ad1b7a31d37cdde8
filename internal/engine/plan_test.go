package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster(n int) []Rider {
	roster := make([]Rider, n)
	for i := range roster {
		roster[i] = Rider{
			ID:        uint64(i + 1),
			Plate:     uint32(i + 1),
			FirstName: fmt.Sprintf("Rider%d", i+1),
			LastName:  fmt.Sprintf("Surname%d", i+1),
		}
	}
	return roster
}

func TestBuildPlanValidation(t *testing.T) {
	roster := testRoster(5)

	_, err := BuildPlan(roster, 2, "seed")
	assert.ErrorIs(t, err, ErrRoundCount)

	_, err = BuildPlan(roster, 7, "seed")
	assert.ErrorIs(t, err, ErrRoundCount)

	_, err = BuildPlan(nil, 4, "seed")
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestBuildPlanRoundTagging(t *testing.T) {
	roster := testRoster(6)
	for roundCount := MinRounds; roundCount <= MaxRounds; roundCount++ {
		plan, err := BuildPlan(roster, roundCount, "tagging")
		require.NoError(t, err)
		require.Len(t, plan.Rounds, roundCount)

		for i, round := range plan.Rounds {
			assert.Equal(t, i+1, round.OrderNo)
			if i == roundCount-1 {
				assert.Equal(t, StageFinal, round.Stage)
				assert.Equal(t, "Final", round.Label)
			} else {
				assert.Equal(t, StageQualifying, round.Stage)
				assert.Equal(t, fmt.Sprintf("M%d", i+1), round.Label)
			}
		}
	}
}

func TestBuildPlanSingleHeat(t *testing.T) {
	roster := testRoster(8)
	plan, err := BuildPlan(roster, 3, "single")
	require.NoError(t, err)

	for _, round := range plan.Rounds {
		require.Len(t, round.Heats, 1)
		assert.Len(t, round.Heats[0].Entries, 8)
	}
	require.NoError(t, plan.Validate())
}

func TestBuildPlanHeatCapacityAndCount(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 10, 16, 17, 23, 40} {
		roster := testRoster(n)
		plan, err := BuildPlan(roster, 4, "capacity")
		require.NoError(t, err)

		wantHeats := (n + MaxGates - 1) / MaxGates
		for _, round := range plan.Rounds {
			require.Len(t, round.Heats, wantHeats, "roster=%d", n)
			total := 0
			for i, heat := range round.Heats {
				assert.Equal(t, i+1, heat.HeatNo)
				assert.LessOrEqual(t, len(heat.Entries), MaxGates)
				total += len(heat.Entries)
			}
			assert.Equal(t, n, total, "every rider races every round")
		}
	}
}

func TestBuildPlanLaneUniqueness(t *testing.T) {
	roster := testRoster(21)
	plan, err := BuildPlan(roster, 5, "lanes")
	require.NoError(t, err)

	for _, round := range plan.Rounds {
		for _, heat := range round.Heats {
			seen := map[int]bool{}
			for _, e := range heat.Entries {
				assert.GreaterOrEqual(t, e.GateNo, 1)
				assert.LessOrEqual(t, e.GateNo, MaxGates)
				assert.False(t, seen[e.GateNo], "gate %d repeated in round %d heat %d",
					e.GateNo, round.OrderNo, heat.HeatNo)
				seen[e.GateNo] = true
			}
			assert.Len(t, seen, len(heat.Entries))
		}
	}
}

func TestBuildPlanEveryRiderInEveryRound(t *testing.T) {
	roster := testRoster(13)
	plan, err := BuildPlan(roster, 4, "membership")
	require.NoError(t, err)

	for _, round := range plan.Rounds {
		seen := map[uint64]bool{}
		for _, heat := range round.Heats {
			for _, e := range heat.Entries {
				assert.False(t, seen[e.RiderID], "rider %d twice in round %d", e.RiderID, round.OrderNo)
				seen[e.RiderID] = true
			}
		}
		assert.Len(t, seen, len(roster))
	}
}

func TestBuildPlanDeterminism(t *testing.T) {
	roster := testRoster(10)

	a, err := BuildPlan(roster, 4, "race-42")
	require.NoError(t, err)
	b, err := BuildPlan(roster, 4, "race-42")
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical seed must reproduce an identical plan")

	c, err := BuildPlan(roster, 4, "race-43")
	require.NoError(t, err)
	assert.NotEqual(t, a.Rounds, c.Rounds, "different seed must rearrange the plan")
}

// The example scenario from the track manual: ten riders, four rounds.
func TestBuildPlanTenRiderScenario(t *testing.T) {
	roster := testRoster(10)
	plan, err := BuildPlan(roster, 4, "race-42")
	require.NoError(t, err)

	require.Len(t, plan.Rounds, 4)
	assert.Equal(t, []string{"M1", "M2", "M3", "Final"},
		[]string{plan.Rounds[0].Label, plan.Rounds[1].Label, plan.Rounds[2].Label, plan.Rounds[3].Label})

	for _, round := range plan.Rounds {
		require.Len(t, round.Heats, 2, "10 riders split 8+2")
		assert.Len(t, round.Heats[0].Entries, 8)
		assert.Len(t, round.Heats[1].Entries, 2)

		// Second heat draws from the short permutation: lanes 1..2 only.
		for _, e := range round.Heats[1].Entries {
			assert.LessOrEqual(t, e.GateNo, 2)
		}
	}
	require.NoError(t, plan.Validate())
}

func TestPlanValidateRejectsDuplicateGate(t *testing.T) {
	plan := &Plan{
		Seed:       "bad",
		RoundCount: 3,
		Rounds: []Round{{
			OrderNo: 1,
			Stage:   StageQualifying,
			Label:   "M1",
			Heats: []Heat{{
				HeatNo:  1,
				Entries: []Entry{{RiderID: 1, GateNo: 3}, {RiderID: 2, GateNo: 3}},
			}},
		}},
	}
	assert.ErrorIs(t, plan.Validate(), ErrDuplicateGate)
}

func TestRoundLabel(t *testing.T) {
	assert.Equal(t, "M1", RoundLabel(1, 4))
	assert.Equal(t, "M3", RoundLabel(3, 4))
	assert.Equal(t, "Final", RoundLabel(4, 4))
	assert.Equal(t, "Final", RoundLabel(6, 6))
}
