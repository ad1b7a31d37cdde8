// Package queue defines the RabbitMQ activity events and the consumer that
// turns them into an audit trail.  Publishing is fire-and-forget: losing an
// activity line must never fail the HTTP request that caused it.
package queue

import "time"

// ActivityQueue is the single queue all race activity flows through.
const ActivityQueue = "race.activity"

// Event kinds carried in the envelope.
const (
	KindRaceBuilt      = "race.built"
	KindResultRecorded = "result.recorded"
)

// Envelope wraps every published activity message.
type Envelope struct {
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      string          `json:"actor,omitempty"`
	RaceBuilt  *RaceBuiltEvent `json:"race_built,omitempty"`
	Result     *ResultEvent    `json:"result,omitempty"`
}

// RaceBuiltEvent is emitted after a race plan is persisted.
type RaceBuiltEvent struct {
	RaceID     uint64 `json:"race_id"`
	EventID    uint64 `json:"event_id"`
	CategoryID uint64 `json:"category_id"`
	Seed       string `json:"seed"`
	RoundCount int    `json:"round_count"`
	RiderCount int    `json:"rider_count"`
	HeatCount  int    `json:"heat_count"`
}

// ResultEvent is emitted whenever a heat result is recorded or changed.
type ResultEvent struct {
	RaceID      uint64 `json:"race_id"`
	HeatEntryID uint64 `json:"heat_entry_id"`
	Status      string `json:"status"`
	FinishPos   *int   `json:"finish_pos,omitempty"`
	TimeMs      *int64 `json:"time_ms,omitempty"`
}
