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

// CourseSchema exposes the listable course fields.
var CourseSchema = query.Schema{
	Table: "courses",
	Fields: map[string]query.Field{
		"id":                   {Column: "id", Kind: query.Number},
		"bootcampId":           {Column: "bootcamp_id", Kind: query.Number},
		"user":                 {Column: "user_id", Kind: query.Number},
		"title":                {Column: "title", Kind: query.String},
		"description":          {Column: "description", Kind: query.String},
		"weeks":                {Column: "weeks", Kind: query.String},
		"tuition":              {Column: "tuition", Kind: query.Number},
		"minimumSkill":         {Column: "minimum_skill", Kind: query.String},
		"scholarshipAvailable": {Column: "scholarship_available", Kind: query.Bool},
		"createdAt":            {Column: "created_at", Kind: query.Time},
	},
	Order: []string{"id", "bootcampId", "user", "title", "description", "weeks",
		"tuition", "minimumSkill", "scholarshipAvailable", "createdAt"},
}

const courseColumns = "id, bootcamp_id, user_id, title, description, weeks, tuition, minimum_skill, scholarship_available, created_at"

// recomputeAverageCost rounds the mean tuition up to the next multiple
// of ten.  A bootcamp without courses gets NULL.
const recomputeAverageCost = `UPDATE bootcamps SET average_cost =
	(SELECT CEIL(AVG(tuition) / 10) * 10 FROM courses WHERE bootcamp_id = ?)
	WHERE id = ?`

type CourseRepo struct {
	db *sql.DB
}

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

func scanCourse(row interface{ Scan(...any) error }) (*model.Course, error) {
	var c model.Course
	err := row.Scan(&c.ID, &c.BootcampID, &c.UserID, &c.Title, &c.Description, &c.Weeks,
		&c.Tuition, &c.MinimumSkill, &c.ScholarshipAvailable, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// inTx runs fn inside a transaction and then refreshes the bootcamp's
// average cost before committing.
func (r *CourseRepo) inTx(ctx context.Context, bootcampID uint64, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, recomputeAverageCost, bootcampID, bootcampID); err != nil {
		return fmt.Errorf("recompute average cost: %w", err)
	}
	return tx.Commit()
}

// Create inserts c and refreshes the bootcamp's average cost.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	now := time.Now().UTC().Truncate(time.Second)
	return r.inTx(ctx, c.BootcampID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO courses
			(bootcamp_id, user_id, title, description, weeks, tuition, minimum_skill, scholarship_available, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			c.BootcampID, c.UserID, c.Title, c.Description, c.Weeks, c.Tuition, c.MinimumSkill, c.ScholarshipAvailable, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		c.CreatedAt = now
		return nil
	})
}

// GetByID fetches a course with its bootcamp summary.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (*model.Course, error) {
	c, err := scanCourse(r.db.QueryRowContext(ctx, "SELECT "+courseColumns+" FROM courses WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	sums, err := bootcampSummaries(ctx, r.db, []uint64{c.BootcampID})
	if err != nil {
		return nil, err
	}
	if s, ok := sums[c.BootcampID]; ok {
		c.Bootcamp = &s
	}
	return c, nil
}

// Update writes the editable fields of c and refreshes the average cost.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	return r.inTx(ctx, c.BootcampID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE courses SET
			title=?, description=?, weeks=?, tuition=?, minimum_skill=?, scholarship_available=?
			WHERE id=?`,
			c.Title, c.Description, c.Weeks, c.Tuition, c.MinimumSkill, c.ScholarshipAvailable, c.ID)
		return translate(err)
	})
}

// Delete removes c and refreshes the average cost.
func (r *CourseRepo) Delete(ctx context.Context, c *model.Course) error {
	return r.inTx(ctx, c.BootcampID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", c.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByBootcamp returns every course of a bootcamp.
func (r *CourseRepo) ListByBootcamp(ctx context.Context, bootcampID uint64) ([]*model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE bootcamp_id = ? ORDER BY id", bootcampID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// List returns one page of courses with their bootcamp summary embedded.
func (r *CourseRepo) List(ctx context.Context, q query.Query) ([]query.Document, int64, error) {
	docs, total, err := list(ctx, r.db, CourseSchema, q)
	if err != nil {
		return nil, 0, err
	}
	if err := embedBootcamps(ctx, r.db, docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
