package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Rider mirrors the 'riders' table.
type Rider struct {
	ID          uint64
	Plate       uint32
	FirstName   string
	LastName    string
	Club        string
	Gender      string
	DateOfBirth time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RiderRepo struct{ DB *sql.DB }

func NewRiderRepo(db *sql.DB) *RiderRepo { return &RiderRepo{DB: db} }

var (
	ErrPlateExists   = errors.New("plate number already in use")
	ErrRiderNotFound = errors.New("rider not found")
)

const riderCols = "id,plate,first_name,last_name,club,gender,date_of_birth,is_active,created_at,updated_at"

func scanRider(row interface{ Scan(...any) error }) (Rider, error) {
	var rd Rider
	err := row.Scan(&rd.ID, &rd.Plate, &rd.FirstName, &rd.LastName, &rd.Club,
		&rd.Gender, &rd.DateOfBirth, &rd.IsActive, &rd.CreatedAt, &rd.UpdatedAt)
	return rd, err
}

// Create inserts a rider; the plate number is unique nationwide.
func (r *RiderRepo) Create(ctx context.Context, rd Rider) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO riders (plate, first_name, last_name, club, gender, date_of_birth) VALUES (?,?,?,?,?,?)",
		rd.Plate, rd.FirstName, rd.LastName, rd.Club, rd.Gender, rd.DateOfBirth)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrPlateExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *RiderRepo) GetByID(ctx context.Context, id uint64) (Rider, error) {
	rd, err := scanRider(r.DB.QueryRowContext(ctx,
		"SELECT "+riderCols+" FROM riders WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rd, ErrRiderNotFound
	}
	return rd, err
}

// List returns riders, optionally filtered by a search term on name, plate
// or club, ordered by plate.
func (r *RiderRepo) List(ctx context.Context, search string, activeOnly bool) ([]Rider, error) {
	q := "SELECT " + riderCols + " FROM riders WHERE 1=1"
	args := []any{}
	if activeOnly {
		q += " AND is_active=1"
	}
	if search != "" {
		q += " AND (first_name LIKE ? OR last_name LIKE ? OR club LIKE ? OR CAST(plate AS CHAR) LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like, like)
	}
	q += " ORDER BY plate"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rider
	for rows.Next() {
		rd, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *RiderRepo) Update(ctx context.Context, rd Rider) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE riders SET plate=?, first_name=?, last_name=?, club=?, gender=?,
		 date_of_birth=?, is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		rd.Plate, rd.FirstName, rd.LastName, rd.Club, rd.Gender, rd.DateOfBirth, rd.IsActive, rd.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrPlateExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRiderNotFound
	}
	return nil
}

// Delete soft-deletes by flipping is_active; historical results keep pointing
// at the rider row.
func (r *RiderRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE riders SET is_active=0, updated_at=CURRENT_TIMESTAMP WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRiderNotFound
	}
	return nil
}
