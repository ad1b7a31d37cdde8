package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Category mirrors the 'categories' table.  Age limits are inclusive and
// evaluated against the rider's age on the event date.  Gender is 'M', 'F'
// or 'MIXED'; Wheel is '20' or '24' (cruiser).
type Category struct {
	ID        uint64
	Name      string
	MinAge    int
	MaxAge    int
	Gender    string
	Wheel     string
	MaxRiders int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

var (
	ErrCategoryExists   = errors.New("category name already exists")
	ErrCategoryNotFound = errors.New("category not found")
)

const categoryCols = "id,name,min_age,max_age,gender,wheel,max_riders,is_active,created_at,updated_at"

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var cat Category
	err := row.Scan(&cat.ID, &cat.Name, &cat.MinAge, &cat.MaxAge, &cat.Gender,
		&cat.Wheel, &cat.MaxRiders, &cat.IsActive, &cat.CreatedAt, &cat.UpdatedAt)
	return cat, err
}

func (r *CategoryRepo) Create(ctx context.Context, cat Category) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, min_age, max_age, gender, wheel, max_riders) VALUES (?,?,?,?,?,?)",
		cat.Name, cat.MinAge, cat.MaxAge, cat.Gender, cat.Wheel, cat.MaxRiders)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrCategoryExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (Category, error) {
	cat, err := scanCategory(r.DB.QueryRowContext(ctx,
		"SELECT "+categoryCols+" FROM categories WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return cat, ErrCategoryNotFound
	}
	return cat, err
}

func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]Category, error) {
	q := "SELECT " + categoryCols + " FROM categories"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	q += " ORDER BY wheel, min_age, name"

	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Update(ctx context.Context, cat Category) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE categories SET name=?, min_age=?, max_age=?, gender=?, wheel=?,
		 max_riders=?, is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		cat.Name, cat.MinAge, cat.MaxAge, cat.Gender, cat.Wheel, cat.MaxRiders, cat.IsActive, cat.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrCategoryExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET is_active=0, updated_at=CURRENT_TIMESTAMP WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// EligibleRiders returns active riders whose age on the given date and
// gender fit the category.  MIXED categories accept any gender.
func (r *CategoryRepo) EligibleRiders(ctx context.Context, cat Category, onDate time.Time) ([]Rider, error) {
	q := `SELECT ` + riderCols + ` FROM riders
	      WHERE is_active=1
	        AND TIMESTAMPDIFF(YEAR, date_of_birth, ?) BETWEEN ? AND ?`
	args := []any{onDate, cat.MinAge, cat.MaxAge}
	if cat.Gender != "MIXED" {
		q += " AND gender=?"
		args = append(args, cat.Gender)
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
