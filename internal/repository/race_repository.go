package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andeanbmx/race-manager/internal/engine"
)

// Race mirrors the 'races' table: one competition for an event+category pair.
// Status moves PLANNED -> ACTIVE when the plan is built and FINISHED when the
// event closes.  SeedValue is the string fed to the deterministic builder.
type Race struct {
	ID              uint64
	EventID         uint64
	CategoryID      uint64
	RoundCount      int
	SeedValue       string
	GateChoiceFinal bool
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// joined display fields
	EventName    string
	CategoryName string
}

// EntryDetail is one lane of a heat with the rider joined in and the result
// attached when recorded.
type EntryDetail struct {
	ID        uint64 `json:"id"`
	RiderID   uint64 `json:"rider_id"`
	Plate     uint32 `json:"plate"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Club      string `json:"club"`
	GateNo    int    `json:"gate_no"`

	ResultStatus *string `json:"result_status,omitempty"`
	FinishPos    *int    `json:"finish_pos,omitempty"`
	TimeMs       *int64  `json:"time_ms,omitempty"`
}

type HeatDetail struct {
	ID      uint64        `json:"id"`
	HeatNo  int           `json:"heat_no"`
	Entries []EntryDetail `json:"entries"`
}

type MotoDetail struct {
	ID      uint64       `json:"id"`
	OrderNo int          `json:"order_no"`
	Label   string       `json:"label"`
	Stage   string       `json:"stage"`
	Heats   []HeatDetail `json:"heats"`
}

type RaceRepo struct{ DB *sql.DB }

func NewRaceRepo(db *sql.DB) *RaceRepo { return &RaceRepo{DB: db} }

var (
	ErrRaceExists       = errors.New("race already exists for this event and category")
	ErrRaceNotFound     = errors.New("race not found")
	ErrRaceAlreadyBuilt = errors.New("race already has motos built")
	ErrFinalNotFound    = errors.New("race has no final heat")
)

const raceCols = `ra.id, ra.event_id, ra.category_id, ra.round_count, ra.seed_value,
	ra.gate_choice_final, ra.status, ra.created_at, ra.updated_at,
	ev.name, cat.name`

const raceJoin = ` FROM races ra
	JOIN events ev ON ev.id = ra.event_id
	JOIN categories cat ON cat.id = ra.category_id`

func scanRace(row interface{ Scan(...any) error }) (Race, error) {
	var ra Race
	err := row.Scan(&ra.ID, &ra.EventID, &ra.CategoryID, &ra.RoundCount, &ra.SeedValue,
		&ra.GateChoiceFinal, &ra.Status, &ra.CreatedAt, &ra.UpdatedAt,
		&ra.EventName, &ra.CategoryName)
	return ra, err
}

// Create inserts a PLANNED race.  One race per event+category pair.
func (r *RaceRepo) Create(ctx context.Context, eventID, categoryID uint64, roundCount int, seedValue string, gateChoiceFinal bool) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO races (event_id, category_id, round_count, seed_value, gate_choice_final, status)
		 VALUES (?,?,?,?,?,'PLANNED')`,
		eventID, categoryID, roundCount, seedValue, gateChoiceFinal)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrRaceExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *RaceRepo) GetByID(ctx context.Context, id uint64) (Race, error) {
	ra, err := scanRace(r.DB.QueryRowContext(ctx,
		"SELECT "+raceCols+raceJoin+" WHERE ra.id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return ra, ErrRaceNotFound
	}
	return ra, err
}

// List returns races, optionally scoped to one event.
func (r *RaceRepo) List(ctx context.Context, eventID uint64) ([]Race, error) {
	q := "SELECT " + raceCols + raceJoin
	args := []any{}
	if eventID != 0 {
		q += " WHERE ra.event_id=?"
		args = append(args, eventID)
	}
	q += " ORDER BY ra.id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Race
	for rows.Next() {
		ra, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

// SavePlan persists a built plan inside one transaction.  The race row is
// locked first and the build is refused when motos already exist, so two
// concurrent builds cannot double-write a race.  On success the race moves
// to ACTIVE.
func (r *RaceRepo) SavePlan(ctx context.Context, raceID uint64, plan *engine.Plan) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM races WHERE id=? FOR UPDATE", raceID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRaceNotFound
	}
	if err != nil {
		return err
	}

	var motoCount int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM motos WHERE race_id=?", raceID).Scan(&motoCount); err != nil {
		return err
	}
	if motoCount > 0 {
		return ErrRaceAlreadyBuilt
	}

	for _, round := range plan.Rounds {
		mres, err := tx.ExecContext(ctx,
			"INSERT INTO motos (race_id, order_no, label, stage) VALUES (?,?,?,?)",
			raceID, round.OrderNo, round.Label, stageValue(round.Stage))
		if err != nil {
			return err
		}
		motoID, err := mres.LastInsertId()
		if err != nil {
			return err
		}
		for _, heat := range round.Heats {
			hres, err := tx.ExecContext(ctx,
				"INSERT INTO heats (moto_id, heat_no) VALUES (?,?)", motoID, heat.HeatNo)
			if err != nil {
				return err
			}
			heatID, err := hres.LastInsertId()
			if err != nil {
				return err
			}
			for _, e := range heat.Entries {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO heat_entries (heat_id, rider_id, gate_no) VALUES (?,?,?)",
					heatID, e.RiderID, e.GateNo); err != nil {
					return err
				}
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE races SET status='ACTIVE', seed_value=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		plan.Seed, raceID); err != nil {
		return err
	}
	return tx.Commit()
}

func stageValue(s engine.Stage) string {
	if s == engine.StageFinal {
		return "FINAL"
	}
	return "QUALIFYING"
}

// Detail fetches the full moto/heat/entry tree with riders and any recorded
// results joined in.  One query, grouped in order by the insert ordinals.
func (r *RaceRepo) Detail(ctx context.Context, raceID uint64) ([]MotoDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.id, m.order_no, m.label, m.stage,
		        h.id, h.heat_no,
		        he.id, he.rider_id, he.gate_no,
		        rd.plate, rd.first_name, rd.last_name, rd.club,
		        res.status, res.finish_pos, res.time_ms
		 FROM motos m
		 JOIN heats h ON h.moto_id = m.id
		 JOIN heat_entries he ON he.heat_id = h.id
		 JOIN riders rd ON rd.id = he.rider_id
		 LEFT JOIN results res ON res.heat_entry_id = he.id
		 WHERE m.race_id=?
		 ORDER BY m.order_no, h.heat_no, he.gate_no`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var motos []MotoDetail
	for rows.Next() {
		var (
			m   MotoDetail
			h   HeatDetail
			e   EntryDetail
			rst sql.NullString
			rfp sql.NullInt64
			rtm sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.OrderNo, &m.Label, &m.Stage,
			&h.ID, &h.HeatNo,
			&e.ID, &e.RiderID, &e.GateNo,
			&e.Plate, &e.FirstName, &e.LastName, &e.Club,
			&rst, &rfp, &rtm); err != nil {
			return nil, err
		}
		if rst.Valid {
			s := rst.String
			e.ResultStatus = &s
		}
		if rfp.Valid {
			p := int(rfp.Int64)
			e.FinishPos = &p
		}
		if rtm.Valid {
			t := rtm.Int64
			e.TimeMs = &t
		}

		if len(motos) == 0 || motos[len(motos)-1].ID != m.ID {
			motos = append(motos, m)
		}
		moto := &motos[len(motos)-1]
		if len(moto.Heats) == 0 || moto.Heats[len(moto.Heats)-1].ID != h.ID {
			moto.Heats = append(moto.Heats, h)
		}
		heat := &moto.Heats[len(moto.Heats)-1]
		heat.Entries = append(heat.Entries, e)
	}
	return motos, rows.Err()
}

// ScoredEntries returns every qualifying heat entry of a race with its
// recorded result, shaped for the standings computation.  Final motos are
// excluded: they never feed the qualifying table.
func (r *RaceRepo) ScoredEntries(ctx context.Context, raceID uint64) ([]engine.ScoredEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.order_no, m.label, h.heat_no,
		        rd.id, rd.plate, rd.first_name, rd.last_name, rd.club,
		        res.status, res.finish_pos, res.time_ms
		 FROM motos m
		 JOIN heats h ON h.moto_id = m.id
		 JOIN heat_entries he ON he.heat_id = h.id
		 JOIN riders rd ON rd.id = he.rider_id
		 LEFT JOIN results res ON res.heat_entry_id = he.id
		 WHERE m.race_id=? AND m.stage='QUALIFYING'
		 ORDER BY m.order_no, h.heat_no, he.gate_no`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ScoredEntry
	for rows.Next() {
		var (
			e   engine.ScoredEntry
			rst sql.NullString
			rfp sql.NullInt64
			rtm sql.NullInt64
		)
		if err := rows.Scan(&e.RoundOrderNo, &e.RoundLabel, &e.HeatNo,
			&e.Rider.ID, &e.Rider.Plate, &e.Rider.FirstName, &e.Rider.LastName, &e.Rider.Club,
			&rst, &rfp, &rtm); err != nil {
			return nil, err
		}
		if rst.Valid {
			res := &engine.HeatResult{Status: engine.ResultStatus(rst.String)}
			if rfp.Valid {
				p := int(rfp.Int64)
				res.FinishPos = &p
			}
			if rtm.Valid {
				t := rtm.Int64
				res.TimeMs = &t
			}
			e.Result = res
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceFinalEntries rewrites the final heat of a race with the assigned
// lanes.  Refused once any final result has been recorded.
func (r *RaceRepo) ReplaceFinalEntries(ctx context.Context, raceID uint64, assignments []engine.FinalAssignment) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var heatID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT h.id FROM heats h
		 JOIN motos m ON m.id = h.moto_id
		 WHERE m.race_id=? AND m.stage='FINAL'
		 ORDER BY h.heat_no LIMIT 1 FOR UPDATE`, raceID).Scan(&heatID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFinalNotFound
	}
	if err != nil {
		return err
	}

	var resultCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results res
		 JOIN heat_entries he ON he.id = res.heat_entry_id
		 WHERE he.heat_id=?`, heatID).Scan(&resultCount); err != nil {
		return err
	}
	if resultCount > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM heat_entries WHERE heat_id=?", heatID); err != nil {
		return err
	}
	for _, a := range assignments {
		var choice any
		if a.ChoiceOrder > 0 {
			choice = a.ChoiceOrder
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO heat_entries (heat_id, rider_id, gate_no, choice_order) VALUES (?,?,?,?)",
			heatID, a.RiderID, a.GateNo, choice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HasResults reports whether any result row exists under a race.
func (r *RaceRepo) HasResults(ctx context.Context, raceID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results res
		 JOIN heat_entries he ON he.id = res.heat_entry_id
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 WHERE m.race_id=?`, raceID).Scan(&n)
	return n > 0, err
}

// Delete removes a race and its built tree.  Refused when results exist.
func (r *RaceRepo) Delete(ctx context.Context, raceID uint64) error {
	has, err := r.HasResults(ctx, raceID)
	if err != nil {
		return err
	}
	if has {
		return ErrConflict
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE he FROM heat_entries he
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 WHERE m.race_id=?`, raceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE h FROM heats h
		 JOIN motos m ON m.id = h.moto_id
		 WHERE m.race_id=?`, raceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM motos WHERE race_id=?", raceID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM races WHERE id=?", raceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRaceNotFound
	}
	return tx.Commit()
}
