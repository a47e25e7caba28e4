package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 hashing for reset tokens
	"encoding/hex"  // hex encoding and decoding functions
	"time"
)

// resetTokenBytes is the entropy of a reset secret (40 hex chars).
const resetTokenBytes = 20

// ResetToken is a freshly generated password-reset secret.  Raw is sent
// to the user once; only Hash is persisted, together with ExpiresAt.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// NewResetToken returns a random reset secret, its hash and an expiry of
// now+ttl.
func NewResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	raw, err := randomHex(resetTokenBytes)
	if err != nil {
		return ResetToken{}, err
	}
	return ResetToken{
		Raw:       raw,
		Hash:      HashToken(raw),
		ExpiresAt: now.UTC().Add(ttl),
	}, nil
}

// HashToken returns the SHA‑256 hash of a raw reset secret as a hex
// string.  A fast hash is enough: the secret is high-entropy and single
// use, so only guessing the raw value matters.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
