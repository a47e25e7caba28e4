package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/query"
)

// EarthRadiusMiles is used to turn a radius search distance into an
// angular distance.
const EarthRadiusMiles = 3963.0

// BootcampSchema exposes the listable bootcamp fields.  Location parts
// are flattened into top-level fields.
var BootcampSchema = query.Schema{
	Table: "bootcamps",
	Fields: map[string]query.Field{
		"id":               {Column: "id", Kind: query.Number},
		"user":             {Column: "user_id", Kind: query.Number},
		"name":             {Column: "name", Kind: query.String},
		"slug":             {Column: "slug", Kind: query.String},
		"description":      {Column: "description", Kind: query.String},
		"website":          {Column: "website", Kind: query.String},
		"phone":            {Column: "phone", Kind: query.String},
		"email":            {Column: "email", Kind: query.String},
		"address":          {Column: "address", Kind: query.String},
		"latitude":         {Column: "latitude", Kind: query.Number},
		"longitude":        {Column: "longitude", Kind: query.Number},
		"formattedAddress": {Column: "formatted_address", Kind: query.String},
		"city":             {Column: "city", Kind: query.String},
		"state":            {Column: "state", Kind: query.String},
		"zipcode":          {Column: "zipcode", Kind: query.String},
		"country":          {Column: "country", Kind: query.String},
		"careers":          {Column: "careers", Kind: query.List},
		"averageRating":    {Column: "average_rating", Kind: query.Number},
		"averageCost":      {Column: "average_cost", Kind: query.Number},
		"photo":            {Column: "photo", Kind: query.String},
		"housing":          {Column: "housing", Kind: query.Bool},
		"jobAssistance":    {Column: "job_assistance", Kind: query.Bool},
		"jobGuarantee":     {Column: "job_guarantee", Kind: query.Bool},
		"acceptGi":         {Column: "accept_gi", Kind: query.Bool},
		"createdAt":        {Column: "created_at", Kind: query.Time},
	},
	Order: []string{
		"id", "user", "name", "slug", "description", "website", "phone", "email", "address",
		"latitude", "longitude", "formattedAddress", "city", "state", "zipcode", "country",
		"careers", "averageRating", "averageCost", "photo",
		"housing", "jobAssistance", "jobGuarantee", "acceptGi", "createdAt",
	},
}

const bootcampColumns = `id, user_id, name, slug, description, website, phone, email, address,
	latitude, longitude, formatted_address, street, city, state, zipcode, country,
	careers, average_rating, average_cost, photo,
	housing, job_assistance, job_guarantee, accept_gi, created_at`

// BootcampRepo encapsulates all database queries related to bootcamps.
type BootcampRepo struct {
	db *sql.DB
}

func NewBootcampRepo(db *sql.DB) *BootcampRepo { return &BootcampRepo{db: db} }

func scanBootcamp(row interface{ Scan(...any) error }) (*model.Bootcamp, error) {
	var (
		b        model.Bootcamp
		lat, lng sql.NullFloat64
		loc      model.Location
		careers  string
		rating   sql.NullFloat64
		cost     sql.NullFloat64
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Slug, &b.Description, &b.Website, &b.Phone, &b.Email, &b.Address,
		&lat, &lng, &loc.FormattedAddress, &loc.Street, &loc.City, &loc.State, &loc.Zipcode, &loc.Country,
		&careers, &rating, &cost, &b.Photo,
		&b.Housing, &b.JobAssistance, &b.JobGuarantee, &b.AcceptGi, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lat.Valid && lng.Valid {
		loc.Latitude, loc.Longitude = lat.Float64, lng.Float64
		b.Location = &loc
	}
	b.Careers = splitCareers(careers)
	if rating.Valid {
		b.AverageRating = &rating.Float64
	}
	if cost.Valid {
		b.AverageCost = &cost.Float64
	}
	return &b, nil
}

func splitCareers(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// locationArgs flattens an optional location into column values.
func locationArgs(l *model.Location) []any {
	if l == nil {
		return []any{nil, nil, "", "", "", "", "", ""}
	}
	return []any{l.Latitude, l.Longitude, l.FormattedAddress, l.Street, l.City, l.State, l.Zipcode, l.Country}
}

// Create inserts b and fills in ID and CreatedAt.  A duplicate name
// yields ErrDuplicate.
func (r *BootcampRepo) Create(ctx context.Context, b *model.Bootcamp) error {
	if b.Photo == "" {
		b.Photo = model.DefaultPhoto
	}
	now := time.Now().UTC().Truncate(time.Second)
	args := []any{b.UserID, b.Name, b.Slug, b.Description, b.Website, b.Phone, b.Email, b.Address}
	args = append(args, locationArgs(b.Location)...)
	args = append(args, strings.Join(b.Careers, ","), b.Photo, b.Housing, b.JobAssistance, b.JobGuarantee, b.AcceptGi, now)

	res, err := r.db.ExecContext(ctx, `INSERT INTO bootcamps
		(user_id, name, slug, description, website, phone, email, address,
		 latitude, longitude, formatted_address, street, city, state, zipcode, country,
		 careers, photo, housing, job_assistance, job_guarantee, accept_gi, created_at)
		VALUES (?,?,?,?,?,?,?,?, ?,?,?,?,?,?,?,?, ?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt = now
	return nil
}

// GetByID fetches a bootcamp by id.
func (r *BootcampRepo) GetByID(ctx context.Context, id uint64) (*model.Bootcamp, error) {
	return scanBootcamp(r.db.QueryRowContext(ctx, "SELECT "+bootcampColumns+" FROM bootcamps WHERE id = ?", id))
}

// Update writes every editable field of b.  Owner, photo and the derived
// averages are left alone.
func (r *BootcampRepo) Update(ctx context.Context, b *model.Bootcamp) error {
	args := []any{b.Name, b.Slug, b.Description, b.Website, b.Phone, b.Email, b.Address}
	args = append(args, locationArgs(b.Location)...)
	args = append(args, strings.Join(b.Careers, ","), b.Housing, b.JobAssistance, b.JobGuarantee, b.AcceptGi, b.ID)
	return execOne(ctx, r.db, "bootcamps", `UPDATE bootcamps SET
		name=?, slug=?, description=?, website=?, phone=?, email=?, address=?,
		latitude=?, longitude=?, formatted_address=?, street=?, city=?, state=?, zipcode=?, country=?,
		careers=?, housing=?, job_assistance=?, job_guarantee=?, accept_gi=?
		WHERE id=?`, args...)
}

// UpdatePhoto records the stored photo name.
func (r *BootcampRepo) UpdatePhoto(ctx context.Context, id uint64, photo string) error {
	return execOne(ctx, r.db, "bootcamps", "UPDATE bootcamps SET photo=? WHERE id=?", photo, id)
}

// Delete removes the bootcamp together with its courses and reviews in
// one transaction.
func (r *BootcampRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		"DELETE FROM reviews WHERE bootcamp_id = ?",
		"DELETE FROM courses WHERE bootcamp_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade bootcamp %d: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM bootcamps WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// CountByUser returns how many bootcamps userID owns.
func (r *BootcampRepo) CountByUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bootcamps WHERE user_id = ?", userID).Scan(&n)
	return n, err
}

// WithinRadius returns bootcamps whose location lies within miles of the
// given point, nearest first, using the haversine distance.
func (r *BootcampRepo) WithinRadius(ctx context.Context, lat, lng, miles float64) ([]*model.Bootcamp, error) {
	const dist = `? * 2 * ASIN(SQRT(
		POWER(SIN(RADIANS(latitude - ?) / 2), 2) +
		COS(RADIANS(?)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - ?) / 2), 2)))`
	q := "SELECT " + bootcampColumns + " FROM bootcamps " +
		"WHERE latitude IS NOT NULL AND longitude IS NOT NULL AND " + dist + " <= ? " +
		"ORDER BY " + dist + ", id"
	rows, err := r.db.QueryContext(ctx, q,
		EarthRadiusMiles, lat, lat, lng, miles,
		EarthRadiusMiles, lat, lat, lng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Bootcamp{}
	for rows.Next() {
		b, err := scanBootcamp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// List returns one page of bootcamps with their courses embedded.
func (r *BootcampRepo) List(ctx context.Context, q query.Query) ([]query.Document, int64, error) {
	docs, total, err := list(ctx, r.db, BootcampSchema, q)
	if err != nil {
		return nil, 0, err
	}
	ids := docIDs(docs, "id")
	if len(ids) == 0 {
		return docs, total, nil
	}
	byCamp, err := r.coursesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, d := range docs {
		id, _ := toUint(d["id"])
		cs := byCamp[id]
		if cs == nil {
			cs = []model.Course{}
		}
		d["courses"] = cs
	}
	return docs, total, nil
}

func (r *BootcampRepo) coursesFor(ctx context.Context, ids []uint64) (map[uint64][]model.Course, error) {
	marks, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE bootcamp_id IN ("+marks+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uint64][]model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out[c.BootcampID] = append(out[c.BootcampID], *c)
	}
	return out, rows.Err()
}

// Summaries returns {id, name, description} for each of ids.
func (r *BootcampRepo) Summaries(ctx context.Context, ids []uint64) (map[uint64]model.BootcampSummary, error) {
	return bootcampSummaries(ctx, r.db, ids)
}

func bootcampSummaries(ctx context.Context, db *sql.DB, ids []uint64) (map[uint64]model.BootcampSummary, error) {
	out := map[uint64]model.BootcampSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	marks, args := inClause(ids)
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, description FROM bootcamps WHERE id IN ("+marks+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.BootcampSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// embedBootcamps attaches the bootcamp summary to every document that
// carries a bootcampId.
func embedBootcamps(ctx context.Context, db *sql.DB, docs []query.Document) error {
	ids := docIDs(docs, "bootcampId")
	if len(ids) == 0 {
		return nil
	}
	sums, err := bootcampSummaries(ctx, db, ids)
	if err != nil {
		return err
	}
	for _, d := range docs {
		id, ok := toUint(d["bootcampId"])
		if !ok {
			continue
		}
		if s, ok := sums[id]; ok {
			d["bootcamp"] = &s
		}
	}
	return nil
}
