package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/query"
)

// ReviewSchema exposes the listable review fields.
var ReviewSchema = query.Schema{
	Table: "reviews",
	Fields: map[string]query.Field{
		"id":         {Column: "id", Kind: query.Number},
		"bootcampId": {Column: "bootcamp_id", Kind: query.Number},
		"user":       {Column: "user_id", Kind: query.Number},
		"title":      {Column: "title", Kind: query.String},
		"text":       {Column: "text", Kind: query.String},
		"rating":     {Column: "rating", Kind: query.Number},
		"createdAt":  {Column: "created_at", Kind: query.Time},
	},
	Order: []string{"id", "bootcampId", "user", "title", "text", "rating", "createdAt"},
}

const reviewColumns = "id, bootcamp_id, user_id, title, text, rating, created_at"

const recomputeAverageRating = `UPDATE bootcamps SET average_rating =
	(SELECT AVG(rating) FROM reviews WHERE bootcamp_id = ?)
	WHERE id = ?`

type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func scanReview(row interface{ Scan(...any) error }) (*model.Review, error) {
	var rv model.Review
	err := row.Scan(&rv.ID, &rv.BootcampID, &rv.UserID, &rv.Title, &rv.Text, &rv.Rating, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepo) inTx(ctx context.Context, bootcampID uint64, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, recomputeAverageRating, bootcampID, bootcampID); err != nil {
		return fmt.Errorf("recompute average rating: %w", err)
	}
	return tx.Commit()
}

// Create inserts rv.  A second review of the same bootcamp by the same
// user yields ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, rv.BootcampID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO reviews (bootcamp_id, user_id, title, text, rating, created_at) VALUES (?,?,?,?,?,?)",
			rv.BootcampID, rv.UserID, rv.Title, rv.Text, rv.Rating, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rv.ID = uint64(id)
		rv.CreatedAt = now
		return nil
	})
}

// GetByID fetches a review with its bootcamp summary.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	sums, err := bootcampSummaries(ctx, r.db, []uint64{rv.BootcampID})
	if err != nil {
		return nil, err
	}
	if s, ok := sums[rv.BootcampID]; ok {
		rv.Bootcamp = &s
	}
	return rv, nil
}

// Update writes title, text and rating and refreshes the average rating.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	return r.inTx(ctx, rv.BootcampID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE reviews SET title=?, text=?, rating=? WHERE id=?",
			rv.Title, rv.Text, rv.Rating, rv.ID)
		return translate(err)
	})
}

// Delete removes rv and refreshes the average rating.
func (r *ReviewRepo) Delete(ctx context.Context, rv *model.Review) error {
	return r.inTx(ctx, rv.BootcampID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", rv.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByBootcamp returns every review of a bootcamp.
func (r *ReviewRepo) ListByBootcamp(ctx context.Context, bootcampID uint64) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE bootcamp_id = ? ORDER BY id", bootcampID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// List returns one page of reviews with their bootcamp summary embedded.
func (r *ReviewRepo) List(ctx context.Context, q query.Query) ([]query.Document, int64, error) {
	docs, total, err := list(ctx, r.db, ReviewSchema, q)
	if err != nil {
		return nil, 0, err
	}
	if err := embedBootcamps(ctx, r.db, docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
