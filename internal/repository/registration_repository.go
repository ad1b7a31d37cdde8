package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andeanbmx/race-manager/internal/engine"
)

// Registration ties a rider to an event+category pair.  Seed is an optional
// manual ranking used only for display ordering of starting lists; the race
// builder shuffles regardless.
type Registration struct {
	ID         uint64
	EventID    uint64
	CategoryID uint64
	RiderID    uint64
	Status     string
	Seed       sql.NullInt64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// joined rider fields, populated by list queries
	Plate     uint32
	FirstName string
	LastName  string
	Club      string
}

type RegistrationRepo struct{ DB *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{DB: db} }

var (
	ErrAlreadyRegistered    = errors.New("rider already registered in this category")
	ErrRegistrationNotFound = errors.New("registration not found")
)

// Create registers a rider; the (event, category, rider) triple is unique.
func (r *RegistrationRepo) Create(ctx context.Context, eventID, categoryID, riderID uint64, seed *int64) (uint64, error) {
	var seedVal any
	if seed != nil {
		seedVal = *seed
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO registrations (event_id, category_id, rider_id, status, seed) VALUES (?,?,?,'REGISTERED',?)",
		eventID, categoryID, riderID, seedVal)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrAlreadyRegistered
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CountByRace counts registrations for one event+category pair; used for the
// category capacity check before accepting a new registration.
func (r *RegistrationRepo) CountByRace(ctx context.Context, eventID, categoryID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE event_id=? AND category_id=? AND status <> 'CANCELLED'",
		eventID, categoryID).Scan(&n)
	return n, err
}

// ListByEvent returns registrations with rider info, grouped by category and
// ordered seeded-first (NULL seeds last), then by last name.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64, categoryID uint64) ([]Registration, error) {
	q := `SELECT g.id, g.event_id, g.category_id, g.rider_id, g.status, g.seed,
	             g.created_at, g.updated_at,
	             rd.plate, rd.first_name, rd.last_name, rd.club
	      FROM registrations g
	      JOIN riders rd ON rd.id = g.rider_id
	      WHERE g.event_id=?`
	args := []any{eventID}
	if categoryID != 0 {
		q += " AND g.category_id=?"
		args = append(args, categoryID)
	}
	q += " ORDER BY g.category_id, (g.seed IS NULL), g.seed, rd.last_name, rd.first_name"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		var g Registration
		if err := rows.Scan(&g.ID, &g.EventID, &g.CategoryID, &g.RiderID, &g.Status, &g.Seed,
			&g.CreatedAt, &g.UpdatedAt, &g.Plate, &g.FirstName, &g.LastName, &g.Club); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Roster returns the riders whose registrations are live (REGISTERED or
// CONFIRMED) for one event+category pair, seeded riders first then by
// surname.  This ordering is part of the build contract: the race builder
// shuffles deterministically, so the input order must be stable too.
func (r *RegistrationRepo) Roster(ctx context.Context, eventID, categoryID uint64) ([]engine.Rider, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rd.id, rd.plate, rd.first_name, rd.last_name, rd.club
		 FROM registrations g
		 JOIN riders rd ON rd.id = g.rider_id
		 WHERE g.event_id=? AND g.category_id=? AND g.status IN ('REGISTERED','CONFIRMED')
		 ORDER BY (g.seed IS NULL), g.seed, rd.last_name, rd.first_name, rd.plate`,
		eventID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Rider
	for rows.Next() {
		var rd engine.Rider
		if err := rows.Scan(&rd.ID, &rd.Plate, &rd.FirstName, &rd.LastName, &rd.Club); err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// UpdateStatus moves a registration between REGISTERED/CONFIRMED/CANCELLED.
func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE registrations SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// UpdateSeed sets or clears the manual seed ranking.
func (r *RegistrationRepo) UpdateSeed(ctx context.Context, id uint64, seed *int64) error {
	var seedVal any
	if seed != nil {
		seedVal = *seed
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE registrations SET seed=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", seedVal, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *RegistrationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM registrations WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}
