package repository

import (
	"context"
	"database/sql"
)

// AnnualRankingRow is one rider's aggregate over every final they rode in a
// year.  Scoring is inverted relative to qualifying: a final finish at
// position p earns 9-p points and higher totals rank higher, so winning a
// final is worth 8.  Non-OK finals earn nothing.
type AnnualRankingRow struct {
	RiderID   uint64 `json:"rider_id"`
	Plate     uint32 `json:"plate"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Club      string `json:"club"`
	Finals    int    `json:"finals"`
	Points    int    `json:"points"`
}

// PodiumRow is one of the top finishers of a race's final.
type PodiumRow struct {
	RaceID       uint64 `json:"race_id"`
	CategoryName string `json:"category_name"`
	Position     int    `json:"position"`
	RiderID      uint64 `json:"rider_id"`
	Plate        uint32 `json:"plate"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Club         string `json:"club"`
	TimeMs       *int64 `json:"time_ms,omitempty"`
}

// ReportRepo serves the read-only aggregate queries behind the reports API.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// AnnualRanking aggregates final-only scoring across all events of a year.
// Ties break by plate to keep the output stable.
func (r *ReportRepo) AnnualRanking(ctx context.Context, year int) ([]AnnualRankingRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rd.id, rd.plate, rd.first_name, rd.last_name, rd.club,
		        COUNT(*) AS finals,
		        COALESCE(SUM(CASE WHEN res.status='OK' AND res.finish_pos IS NOT NULL
		                          THEN 9 - res.finish_pos ELSE 0 END), 0) AS points
		 FROM results res
		 JOIN heat_entries he ON he.id = res.heat_entry_id
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 JOIN races ra ON ra.id = m.race_id
		 JOIN events ev ON ev.id = ra.event_id
		 JOIN riders rd ON rd.id = he.rider_id
		 WHERE m.stage='FINAL' AND YEAR(ev.date)=?
		 GROUP BY rd.id, rd.plate, rd.first_name, rd.last_name, rd.club
		 ORDER BY points DESC, rd.plate`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnnualRankingRow
	for rows.Next() {
		var row AnnualRankingRow
		if err := rows.Scan(&row.RiderID, &row.Plate, &row.FirstName, &row.LastName, &row.Club,
			&row.Finals, &row.Points); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Podiums returns the top finishers (positions 1..limit) of every final in
// an event, grouped by race.
func (r *ReportRepo) Podiums(ctx context.Context, eventID uint64, limit int) ([]PodiumRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ra.id, cat.name, res.finish_pos,
		        rd.id, rd.plate, rd.first_name, rd.last_name, rd.club, res.time_ms
		 FROM results res
		 JOIN heat_entries he ON he.id = res.heat_entry_id
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 JOIN races ra ON ra.id = m.race_id
		 JOIN categories cat ON cat.id = ra.category_id
		 JOIN riders rd ON rd.id = he.rider_id
		 WHERE m.stage='FINAL' AND ra.event_id=? AND res.status='OK' AND res.finish_pos <= ?
		 ORDER BY ra.id, res.finish_pos`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PodiumRow
	for rows.Next() {
		var (
			row PodiumRow
			tm  sql.NullInt64
		)
		if err := rows.Scan(&row.RaceID, &row.CategoryName, &row.Position,
			&row.RiderID, &row.Plate, &row.FirstName, &row.LastName, &row.Club, &tm); err != nil {
			return nil, err
		}
		if tm.Valid {
			t := tm.Int64
			row.TimeMs = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
