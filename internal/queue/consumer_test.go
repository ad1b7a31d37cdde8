package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatLineRaceBuilt(t *testing.T) {
	ts := time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)
	line := formatLine(Envelope{
		Kind:       KindRaceBuilt,
		OccurredAt: ts,
		Actor:      "maria",
		RaceBuilt: &RaceBuiltEvent{
			RaceID: 7, EventID: 2, CategoryID: 5,
			Seed: "race-2-5-99", RoundCount: 3, RiderCount: 13, HeatCount: 5,
		},
	})
	assert.Contains(t, line, "[2026-05-03T10:00:00Z]")
	assert.Contains(t, line, "race_id=7")
	assert.Contains(t, line, `seed="race-2-5-99"`)
	assert.Contains(t, line, "riders=13")
	assert.Contains(t, line, `by="maria"`)
}

func TestFormatLineResultOmitsMissingFields(t *testing.T) {
	line := formatLine(Envelope{
		Kind:       KindResultRecorded,
		OccurredAt: time.Now(),
		Result:     &ResultEvent{RaceID: 1, HeatEntryID: 44, Status: "DNF"},
	})
	assert.Contains(t, line, "status=DNF")
	assert.Contains(t, line, "pos=-")
	assert.Contains(t, line, "time=-")
}

func TestFormatLineMalformedEnvelope(t *testing.T) {
	line := formatLine(Envelope{Kind: KindRaceBuilt, OccurredAt: time.Now()})
	assert.Contains(t, line, "malformed envelope")
}
