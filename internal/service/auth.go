// Package service holds the credential and session logic shared by the
// auth handlers and the Protect middleware.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/queue"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
	"github.com/iliyamo/bootcamp-directory/internal/validate"
)

// Client-facing messages.
const (
	MsgMissingCredentials = "Please provide an email and password"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNotAuthorized      = "Not authorized to access this route"
	MsgPasswordIncorrect  = "Password is incorrect"
	MsgNoUserWithEmail    = "There is no user with this email"
	MsgEmailNotSent       = "Email could not be sent"
	MsgInvalidToken       = "Invalid token"
	MsgEmailTaken         = "Duplicate field value entered"
)

// UserStore is the persistence the auth service needs.  *repository.UserRepo
// implements it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, hash string, now time.Time) (*model.User, error)
	UpdateDetails(ctx context.Context, id uint64, name, email string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	ConsumeResetToken(ctx context.Context, id uint64, tokenHash string, now time.Time, newHash string) error
	SetResetToken(ctx context.Context, id uint64, hash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
}

// Mailer delivers a plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventPublisher receives account events.  Failures are logged, never
// returned to the caller of the auth operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AccountEvent) error
}

// AuthConfig is the explicit configuration of the auth service.
type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	ResetTTL   time.Duration
	Now        func() time.Time // defaults to time.Now
}

// AuthService implements registration, login, session verification and
// the password reset handshake.
type AuthService struct {
	users  UserStore
	mailer Mailer
	events EventPublisher
	signer *utils.SessionSigner
	cfg    AuthConfig
	logger *slog.Logger
}

// NewAuthService wires the service.  events may be nil.
func NewAuthService(cfg AuthConfig, users UserStore, mailer Mailer, events EventPublisher, logger *slog.Logger) *AuthService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = utils.DefaultBcryptCost
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:  users,
		mailer: mailer,
		events: events,
		signer: utils.NewSessionSigner(cfg.Secret, cfg.TokenTTL, cfg.Now),
		cfg:    cfg,
		logger: logger,
	}
}

// TokenTTL returns the lifetime of issued session tokens.
func (s *AuthService) TokenTTL() time.Duration { return s.signer.TTL() }

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user publisher"`
}

// Register creates an account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, utils.Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, utils.Session{}, err
	}
	role := model.RoleUser
	if in.Role != "" {
		role = model.Role(in.Role)
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, utils.Session{}, apperr.Internal(err)
	}
	u := &model.User{Name: in.Name, Email: in.Email, Role: role, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.Session{}, apperr.Validation(MsgEmailTaken)
		}
		return nil, utils.Session{}, apperr.Internal(err)
	}
	sess, err := s.issue(u.ID)
	if err != nil {
		return nil, utils.Session{}, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", u.ID), slog.String("role", string(u.Role)))
	s.publish(ctx, queue.EventRegistered, u)
	return u, sess, nil
}

// Login checks email and password.  An unknown email and a wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, utils.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, utils.Session{}, apperr.Auth(MsgMissingCredentials)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.Session{}, apperr.Auth(MsgInvalidCredentials)
		}
		return nil, utils.Session{}, apperr.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, utils.Session{}, apperr.Auth(MsgInvalidCredentials)
	}
	sess, err := s.issue(u.ID)
	if err != nil {
		return nil, utils.Session{}, err
	}
	return u, sess, nil
}

// Authenticate verifies a session token and loads the identity it was
// issued for.  Every failure is the same AuthError.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Auth(MsgNotAuthorized)
	}
	id, err := s.signer.Verify(token)
	if err != nil {
		return nil, apperr.Auth(MsgNotAuthorized)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Auth(MsgNotAuthorized)
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Authorize reports whether u's role is in allowed.
func Authorize(u *model.User, allowed model.RoleSet) error {
	if u == nil {
		return apperr.Auth(MsgNotAuthorized)
	}
	if !allowed.Contains(u.Role) {
		return apperr.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", u.Role))
	}
	return nil
}

// Me reloads the identity.
func (s *AuthService) Me(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("User not found with id of %d", id))
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// DetailsInput holds the editable profile fields.
type DetailsInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateDetails changes the caller's name and email.
func (s *AuthService) UpdateDetails(ctx context.Context, u *model.User, in DetailsInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.users.UpdateDetails(ctx, u.ID, in.Name, in.Email); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation(MsgEmailTaken)
		}
		return nil, apperr.Internal(err)
	}
	updated, err := s.Me(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventDetailsUpdated, updated)
	return updated, nil
}

// ChangePassword replaces the password after checking the current one
// and issues a fresh session.  Sessions issued earlier stay valid until
// they expire.
func (s *AuthService) ChangePassword(ctx context.Context, u *model.User, current, next string) (utils.Session, error) {
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return utils.Session{}, apperr.Auth(MsgPasswordIncorrect)
	}
	if len(next) < 6 {
		return utils.Session{}, apperr.Validation("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return utils.Session{}, apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return utils.Session{}, apperr.Internal(err)
	}
	u.PasswordHash = hash
	s.publish(ctx, queue.EventPasswordChanged, u)
	return s.issue(u.ID)
}

// RequestPasswordReset stores a fresh reset token for email, replacing
// any pending one, and mails the reset URL (resetURLBase + raw token).
// When delivery fails the token is cleared again.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, resetURLBase string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.NotFound(MsgNoUserWithEmail)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(MsgNoUserWithEmail)
		}
		return apperr.Internal(err)
	}

	tok, err := utils.NewResetToken(s.cfg.Now(), s.cfg.ResetTTL)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, tok.Hash, tok.ExpiresAt); err != nil {
		return apperr.Internal(err)
	}

	body := "You are receiving this email because you (or someone else) has requested the reset of a password. " +
		"Please make a PUT request to: \n\n" + resetURLBase + tok.Raw
	if err := s.mailer.Send(ctx, u.Email, "Password reset token", body); err != nil {
		s.logger.ErrorContext(ctx, "reset email failed", slog.Uint64("user_id", u.ID), slog.String("error", err.Error()))
		if cerr := s.users.ClearResetToken(ctx, u.ID); cerr != nil {
			s.logger.ErrorContext(ctx, "clear reset token failed", slog.Uint64("user_id", u.ID), slog.String("error", cerr.Error()))
		}
		return apperr.Delivery(MsgEmailNotSent, err)
	}
	s.publish(ctx, queue.EventResetRequested, u)
	return nil
}

// ResetPassword consumes a raw reset token.  The token must match the
// stored hash and expire strictly after now; it cannot be used twice.
func (s *AuthService) ResetPassword(ctx context.Context, raw, password string) (*model.User, utils.Session, error) {
	if raw == "" {
		return nil, utils.Session{}, apperr.Validation(MsgInvalidToken)
	}
	tokenHash, now := utils.HashToken(raw), s.cfg.Now()
	u, err := s.users.GetByResetToken(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.Session{}, apperr.Validation(MsgInvalidToken)
		}
		return nil, utils.Session{}, apperr.Internal(err)
	}
	if len(password) < 6 {
		return nil, utils.Session{}, apperr.Validation("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, utils.Session{}, apperr.Internal(err)
	}
	// conditional on the token still being pending; a concurrent reset
	// that got there first leaves nothing to consume
	if err := s.users.ConsumeResetToken(ctx, u.ID, tokenHash, now, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.Session{}, apperr.Validation(MsgInvalidToken)
		}
		return nil, utils.Session{}, apperr.Internal(err)
	}
	u.PasswordHash = hash
	u.ResetPasswordToken, u.ResetPasswordExpire = nil, nil

	sess, err := s.issue(u.ID)
	if err != nil {
		return nil, utils.Session{}, err
	}
	s.publish(ctx, queue.EventResetCompleted, u)
	return u, sess, nil
}

func (s *AuthService) issue(id uint64) (utils.Session, error) {
	sess, err := s.signer.Issue(id)
	if err != nil {
		return utils.Session{}, apperr.Internal(err)
	}
	return sess, nil
}

func (s *AuthService) publish(ctx context.Context, typ queue.EventType, u *model.User) {
	if s.events == nil {
		return
	}
	ev := queue.AccountEvent{Type: typ, UserID: u.ID, Email: u.Email, OccurredAt: s.cfg.Now().UTC()}
	// detached so a slow broker never delays the response
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.events.Publish(ctx, ev)
	}()
}
