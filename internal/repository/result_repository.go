package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Result mirrors the 'results' table: one recorded outcome per heat entry.
type Result struct {
	ID          uint64
	HeatEntryID uint64
	Status      string
	FinishPos   *int
	TimeMs      *int64
	Notes       string
	RecordedBy  uint64
	RecordedAt  time.Time
}

// EntryContext is what the handler needs to validate a result before writing
// it: which heat the entry belongs to and how many lanes that heat has.
type EntryContext struct {
	HeatEntryID uint64
	HeatID      uint64
	RaceID      uint64
	RaceStatus  string
	LaneCount   int
}

type ResultRepo struct{ DB *sql.DB }

func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{DB: db} }

var (
	ErrResultExists   = errors.New("result already recorded for this entry")
	ErrResultNotFound = errors.New("result not found")
	ErrEntryNotFound  = errors.New("heat entry not found")
	ErrPositionTaken  = errors.New("finish position already taken in this heat")
)

// EntryContextByID resolves the heat, race and lane count for one entry.
func (r *ResultRepo) EntryContextByID(ctx context.Context, heatEntryID uint64) (EntryContext, error) {
	var ec EntryContext
	err := r.DB.QueryRowContext(ctx,
		`SELECT he.id, he.heat_id, m.race_id, ra.status,
		        (SELECT COUNT(*) FROM heat_entries x WHERE x.heat_id = he.heat_id)
		 FROM heat_entries he
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 JOIN races ra ON ra.id = m.race_id
		 WHERE he.id=? LIMIT 1`, heatEntryID).
		Scan(&ec.HeatEntryID, &ec.HeatID, &ec.RaceID, &ec.RaceStatus, &ec.LaneCount)
	if errors.Is(err, sql.ErrNoRows) {
		return ec, ErrEntryNotFound
	}
	return ec, err
}

// Create records one result.  The position check and the insert run in one
// transaction so two timers cannot hand the same heat position to two riders.
func (r *ResultRepo) Create(ctx context.Context, res Result) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := insertResult(ctx, tx, res)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateBulk records a whole heat sheet atomically; either every result
// lands or none do.
func (r *ResultRepo) CreateBulk(ctx context.Context, results []Result) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, res := range results {
		if _, err := insertResult(ctx, tx, res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertResult(ctx context.Context, tx *sql.Tx, res Result) (uint64, error) {
	if res.FinishPos != nil {
		var taken int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM results x
			 JOIN heat_entries he ON he.id = x.heat_entry_id
			 WHERE he.heat_id = (SELECT heat_id FROM heat_entries WHERE id=?)
			   AND x.status='OK' AND x.finish_pos=?`,
			res.HeatEntryID, *res.FinishPos).Scan(&taken)
		if err != nil {
			return 0, err
		}
		if taken > 0 {
			return 0, ErrPositionTaken
		}
	}

	out, err := tx.ExecContext(ctx,
		`INSERT INTO results (heat_entry_id, status, finish_pos, time_ms, notes, recorded_by)
		 VALUES (?,?,?,?,?,?)`,
		res.HeatEntryID, res.Status, res.FinishPos, res.TimeMs, res.Notes, res.RecordedBy)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrResultExists
		}
		return 0, err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a recorded result, re-checking the position against the
// rest of the heat.
func (r *ResultRepo) Update(ctx context.Context, id uint64, status string, finishPos *int, timeMs *int64, notes string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if finishPos != nil {
		var taken int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM results x
			 JOIN heat_entries he ON he.id = x.heat_entry_id
			 WHERE he.heat_id = (SELECT he2.heat_id FROM results r2
			                     JOIN heat_entries he2 ON he2.id = r2.heat_entry_id
			                     WHERE r2.id=?)
			   AND x.status='OK' AND x.finish_pos=? AND x.id <> ?`,
			id, *finishPos, id).Scan(&taken)
		if err != nil {
			return err
		}
		if taken > 0 {
			return ErrPositionTaken
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE results SET status=?, finish_pos=?, time_ms=?, notes=?, recorded_at=NOW()
		 WHERE id=?`,
		status, finishPos, timeMs, notes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return tx.Commit()
}

func (r *ResultRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM results WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return nil
}

// ListByHeat returns recorded results of one heat, fastest position first,
// status-only entries last.
func (r *ResultRepo) ListByHeat(ctx context.Context, heatID uint64) ([]Result, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT x.id, x.heat_entry_id, x.status, x.finish_pos, x.time_ms, x.notes, x.recorded_by, x.recorded_at
		 FROM results x
		 JOIN heat_entries he ON he.id = x.heat_entry_id
		 WHERE he.heat_id=?
		 ORDER BY (x.finish_pos IS NULL), x.finish_pos`, heatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			res Result
			fp  sql.NullInt64
			tm  sql.NullInt64
		)
		if err := rows.Scan(&res.ID, &res.HeatEntryID, &res.Status, &fp, &tm, &res.Notes, &res.RecordedBy, &res.RecordedAt); err != nil {
			return nil, err
		}
		if fp.Valid {
			p := int(fp.Int64)
			res.FinishPos = &p
		}
		if tm.Valid {
			t := tm.Int64
			res.TimeMs = &t
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
