package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidSession is returned for any session token that fails
// verification: bad signature, wrong algorithm, malformed claims or
// expiry.  Callers cannot tell these cases apart on purpose.
var ErrInvalidSession = errors.New("invalid session token")

// Session represents a signed JWT session token along with its expiry.
// The Token field contains the JWT string.  ExpiresAt stores the UTC
// expiration timestamp.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionClaims are the claims carried by a session token.  ID repeats
// the subject as a number so clients can read it without parsing.
type SessionClaims struct {
	ID uint64 `json:"id"`
	jwt.RegisteredClaims
}

// SessionSigner issues and verifies HS256 session tokens with a
// server-held secret.  The clock is injectable so expiry can be tested
// deterministically.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner builds a signer.  A nil now defaults to time.Now.
func NewSessionSigner(secret string, ttl time.Duration, now func() time.Time) *SessionSigner {
	if now == nil {
		now = time.Now
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: now}
}

// TTL returns the lifetime of issued tokens.
func (s *SessionSigner) TTL() time.Duration { return s.ttl }

// Issue builds and signs a session token for userID.  The token includes
// sub (user ID as a string), id, iat and exp.
func (s *SessionSigner) Issue(userID uint64) (Session, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := SessionClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of raw and returns the user ID
// it was issued for.  Every failure collapses into ErrInvalidSession.
func (s *SessionSigner) Verify(raw string) (uint64, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return 0, ErrInvalidSession
	}
	if claims.ID == 0 {
		// tokens minted by other tools may only carry sub
		id, perr := strconv.ParseUint(claims.Subject, 10, 64)
		if perr != nil || id == 0 {
			return 0, ErrInvalidSession
		}
		return id, nil
	}
	return claims.ID, nil
}
