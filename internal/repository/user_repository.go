package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/query"
)

// UserSchema exposes the listable user fields.  The password and the
// reset pair are deliberately absent so no query string can select,
// filter or sort on them.
var UserSchema = query.Schema{
	Table: "users",
	Fields: map[string]query.Field{
		"id":        {Column: "id", Kind: query.Number},
		"name":      {Column: "name", Kind: query.String},
		"email":     {Column: "email", Kind: query.String},
		"role":      {Column: "role", Kind: query.String},
		"createdAt": {Column: "created_at", Kind: query.Time},
	},
	Order: []string{"id", "name", "email", "role", "createdAt"},
}

const userColumns = "id, name, email, role, password, reset_password_token, reset_password_expire, created_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u      model.User
		role   string
		token  sql.NullString
		expire sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &token, &expire, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	if token.Valid {
		u.ResetPasswordToken = &token.String
	}
	if expire.Valid {
		t := expire.Time
		u.ResetPasswordExpire = &t
	}
	return &u, nil
}

// Create inserts u and fills in its ID and CreatedAt.  The email is
// stored lower-cased; PasswordHash must already be a bcrypt hash.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, role, password, created_at) VALUES (?,?,?,?,?)",
		u.Name, u.Email, string(u.Role), u.PasswordHash, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt = now
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normEmail(email)))
}

// GetByResetToken returns the user holding the reset hash, provided the
// token expires strictly after now.
func (r *UserRepo) GetByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE reset_password_token=? AND reset_password_expire>? LIMIT 1",
		hash, now.UTC()))
}

// UpdateDetails changes name and email.
func (r *UserRepo) UpdateDetails(ctx context.Context, id uint64, name, email string) error {
	return execOne(ctx, r.DB, "users", "UPDATE users SET name=?, email=? WHERE id=?", name, normEmail(email), id)
}

// UpdatePassword stores a new hash and clears any pending reset token in
// the same statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return execOne(ctx, r.DB, "users",
		"UPDATE users SET password=?, reset_password_token=NULL, reset_password_expire=NULL WHERE id=?",
		hash, id)
}

// ConsumeResetToken stores a new hash only while tokenHash is still the
// pending, unexpired reset token of user id, and clears the pair in the
// same statement.  A token already consumed (or replaced, or expired)
// yields ErrNotFound, so two racing resets cannot both succeed.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, id uint64, tokenHash string, now time.Time, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password=?, reset_password_token=NULL, reset_password_expire=NULL
		 WHERE id=? AND reset_password_token=? AND reset_password_expire>?`,
		newHash, id, tokenHash, now.UTC())
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken overwrites the reset pair.  A newer request replaces an
// older unconsumed token.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, hash string, expire time.Time) error {
	return execOne(ctx, r.DB, "users",
		"UPDATE users SET reset_password_token=?, reset_password_expire=? WHERE id=?",
		hash, expire.UTC(), id)
}

// ClearResetToken removes the reset pair.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "users",
		"UPDATE users SET reset_password_token=NULL, reset_password_expire=NULL WHERE id=?", id)
}

// Update replaces name, email and role (admin maintenance).
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normEmail(u.Email)
	return execOne(ctx, r.DB, "users", "UPDATE users SET name=?, email=?, role=? WHERE id=?",
		u.Name, u.Email, string(u.Role), u.ID)
}

// Delete removes the user.  Owned bootcamps, courses and reviews go with
// it through the foreign keys.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "users", "DELETE FROM users WHERE id=?", id)
}

// List returns one page of users.
func (r *UserRepo) List(ctx context.Context, q query.Query) ([]query.Document, int64, error) {
	return list(ctx, r.DB, UserSchema, q)
}
