package repository

import (
	"context"
	"database/sql"

	"github.com/andeanbmx/race-manager/internal/engine"
)

// PointsRepo reads and updates the configurable points table (places 1..8).
// Place 9 is the fixed worst-place penalty and never stored.
type PointsRepo struct{ DB *sql.DB }

func NewPointsRepo(db *sql.DB) *PointsRepo { return &PointsRepo{DB: db} }

// Get loads the table; an empty table falls back to the place==points default.
func (r *PointsRepo) Get(ctx context.Context) (engine.PointsTable, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT place, points FROM points_table ORDER BY place")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := make(engine.PointsTable)
	for rows.Next() {
		var place, points int
		if err := rows.Scan(&place, &points); err != nil {
			return nil, err
		}
		t[place] = points
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return engine.DefaultPointsTable(), nil
	}
	return t, nil
}

// Update upserts the given places atomically.
func (r *PointsRepo) Update(ctx context.Context, table engine.PointsTable) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for place := 1; place <= engine.MaxGates; place++ {
		points, ok := table[place]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO points_table (place, points) VALUES (?,?) ON DUPLICATE KEY UPDATE points=VALUES(points)",
			place, points); err != nil {
			return err
		}
	}
	return tx.Commit()
}
