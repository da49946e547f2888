package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrMissingSecret  = errors.New("session secret is not configured")
)

// SessionSigner issues and verifies compact HMAC session tokens of the form
// base64(expiry|userID).base64(signature).
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner returns a signer for tokens valid for ttl.
func NewSessionSigner(secret []byte, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a session token for userID.
func (s *SessionSigner) Issue(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if userID == "" {
		return "", fmt.Errorf("issue session: empty user id")
	}

	payload := make([]byte, 8+len(userID))
	binary.BigEndian.PutUint64(payload[:8], uint64(s.now().Add(s.ttl).Unix()))
	copy(payload[8:], userID)

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(s.sign(payload))
	return payloadEnc + "." + sigEnc, nil
}

// Verify checks integrity and expiry of token and returns its user id.
func (s *SessionSigner) Verify(token string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payloadEnc, sigEnc, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidSession
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadEnc)
	if err != nil || len(payload) <= 8 {
		return "", ErrInvalidSession
	}
	sigProvided, err := base64.RawURLEncoding.DecodeString(sigEnc)
	if err != nil {
		return "", ErrInvalidSession
	}
	if !hmac.Equal(sigProvided, s.sign(payload)) {
		return "", ErrInvalidSession
	}

	expires := int64(binary.BigEndian.Uint64(payload[:8]))
	if s.now().Unix() > expires {
		return "", ErrInvalidSession
	}

	return string(payload[8:]), nil
}

func (s *SessionSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte("session|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
