package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Event mirrors the 'events' table.  Status is DRAFT, OPEN, CLOSED or
// FINISHED; registrations are only accepted while OPEN.
type Event struct {
	ID          uint64
	Name        string
	Description string
	Date        time.Time
	Venue       string
	City        string
	Country     string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventStats aggregates dashboard counters for one event.
type EventStats struct {
	Registrations int `json:"registrations"`
	Races         int `json:"races"`
	RacesBuilt    int `json:"races_built"`
	Results       int `json:"results"`
}

type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

var ErrEventNotFound = errors.New("event not found")

const eventCols = "id,name,description,date,venue,city,country,status,created_at,updated_at"

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.Date, &ev.Venue,
		&ev.City, &ev.Country, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt)
	return ev, err
}

func (r *EventRepo) Create(ctx context.Context, ev Event) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (name, description, date, venue, city, country, status) VALUES (?,?,?,?,?,?,?)",
		ev.Name, ev.Description, ev.Date, ev.Venue, ev.City, ev.Country, ev.Status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *EventRepo) GetByID(ctx context.Context, id uint64) (Event, error) {
	ev, err := scanEvent(r.DB.QueryRowContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return ev, ErrEventNotFound
	}
	return ev, err
}

// List returns events newest first, optionally filtered by status.
func (r *EventRepo) List(ctx context.Context, status string) ([]Event, error) {
	q := "SELECT " + eventCols + " FROM events"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY date DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *EventRepo) Update(ctx context.Context, ev Event) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE events SET name=?, description=?, date=?, venue=?, city=?, country=?,
		 status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		ev.Name, ev.Description, ev.Date, ev.Venue, ev.City, ev.Country, ev.Status, ev.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes an event.  Fails with ErrConflict if races exist for it.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM races WHERE event_id=?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Stats gathers the dashboard counters in one pass per table.
func (r *EventRepo) Stats(ctx context.Context, eventID uint64) (EventStats, error) {
	var st EventStats
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE event_id=?", eventID).Scan(&st.Registrations); err != nil {
		return st, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(status='ACTIVE'),0) FROM races WHERE event_id=?",
		eventID).Scan(&st.Races, &st.RacesBuilt); err != nil {
		return st, err
	}
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results res
		 JOIN heat_entries he ON he.id = res.heat_entry_id
		 JOIN heats h ON h.id = he.heat_id
		 JOIN motos m ON m.id = h.moto_id
		 JOIN races ra ON ra.id = m.race_id
		 WHERE ra.event_id=?`, eventID).Scan(&st.Results)
	return st, err
}
