// Package telegramauth verifies Telegram Login Widget payloads.
//
// The widget signs every field it sends with HMAC-SHA256 over the sorted,
// newline-joined "key=value" pairs (hash excluded), keyed by SHA-256 of the
// bot token. A payload is trusted only if the hash matches and auth_date is
// recent.
package telegramauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

var (
	ErrMalformedPayload = errors.New("malformed telegram payload")
	ErrInvalidSignature = errors.New("invalid telegram signature")
	ErrStaleAuth        = errors.New("stale telegram auth")
)

// DefaultMaxAge bounds how old auth_date may be.
const DefaultMaxAge = 24 * time.Hour

// clockSkew tolerates auth dates slightly ahead of our clock.
const clockSkew = time.Minute

type Verifier struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier derives the HMAC key from botToken. A non-positive maxAge
// selects DefaultMaxAge.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	sum := sha256.Sum256([]byte(botToken))
	return &Verifier{key: sum[:], maxAge: maxAge, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify checks payload and returns the identity it carries.
func (v *Verifier) Verify(payload map[string]string) (plasticboy.TelegramIdentity, error) {
	hash := payload["hash"]
	if hash == "" {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: hash is required", ErrMalformedPayload)
	}
	got, err := hex.DecodeString(strings.ToLower(hash))
	if err != nil {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: hash is not hex", ErrMalformedPayload)
	}
	if !hmac.Equal(got, v.mac(payload)) {
		return plasticboy.TelegramIdentity{}, ErrInvalidSignature
	}

	id, err := strconv.ParseInt(payload["id"], 10, 64)
	if err != nil || id <= 0 {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: id", ErrMalformedPayload)
	}
	authUnix, err := strconv.ParseInt(payload["auth_date"], 10, 64)
	if err != nil {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: auth_date", ErrMalformedPayload)
	}
	authDate := time.Unix(authUnix, 0).UTC()

	now := v.now()
	if now.Sub(authDate) > v.maxAge || authDate.Sub(now) > clockSkew {
		return plasticboy.TelegramIdentity{}, ErrStaleAuth
	}

	return plasticboy.TelegramIdentity{
		ID:        id,
		FirstName: payload["first_name"],
		LastName:  payload["last_name"],
		Username:  payload["username"],
		PhotoURL:  payload["photo_url"],
		AuthDate:  authDate,
		Hash:      strings.ToLower(hash),
	}, nil
}

// Sign computes the hash Telegram would attach to fields.
func (v *Verifier) Sign(fields map[string]string) string {
	return hex.EncodeToString(v.mac(fields))
}

func (v *Verifier) mac(fields map[string]string) []byte {
	m := hmac.New(sha256.New, v.key)
	m.Write([]byte(DataCheckString(fields)))
	return m.Sum(nil)
}

// DataCheckString is the canonical form the hash is computed over.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}
