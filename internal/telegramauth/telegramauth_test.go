package telegramauth

import (
	"errors"
	"maps"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const botToken = "123456:TEST-token"

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newVerifier() *Verifier {
	return NewVerifier(botToken, 24*time.Hour).WithClock(func() time.Time { return now })
}

func signedPayload(v *Verifier, authDate time.Time) map[string]string {
	p := map[string]string{
		"id":         "424242",
		"first_name": "Aigerim",
		"last_name":  "S",
		"username":   "aigerim",
		"photo_url":  "https://t.me/i/userpic/320/aigerim.jpg",
		"auth_date":  strconv.FormatInt(authDate.Unix(), 10),
	}
	p["hash"] = v.Sign(p)
	return p
}

func TestDataCheckString(t *testing.T) {
	got := DataCheckString(map[string]string{
		"username":   "u",
		"hash":       "ignored",
		"auth_date":  "1",
		"first_name": "F",
		"id":         "7",
	})
	require.Equal(t, "auth_date=1\nfirst_name=F\nid=7\nusername=u", got)
}

func TestVerifyValid(t *testing.T) {
	v := newVerifier()
	p := signedPayload(v, now.Add(-time.Hour))

	id, err := v.Verify(p)
	require.NoError(t, err)
	require.Equal(t, int64(424242), id.ID)
	require.Equal(t, "Aigerim", id.FirstName)
	require.Equal(t, "aigerim", id.Username)
	require.Equal(t, p["hash"], id.Hash)
	require.True(t, id.AuthDate.Equal(now.Add(-time.Hour).Truncate(time.Second)))
}

func TestVerifyUppercaseHash(t *testing.T) {
	v := newVerifier()
	p := signedPayload(v, now)
	p["hash"] = strings.ToUpper(p["hash"])

	_, err := v.Verify(p)
	require.NoError(t, err)
}

func TestVerifyTampered(t *testing.T) {
	v := newVerifier()

	for _, field := range []string{"id", "first_name", "last_name", "username", "photo_url", "auth_date"} {
		t.Run(field, func(t *testing.T) {
			p := maps.Clone(signedPayload(v, now.Add(-time.Minute)))
			p[field] = p[field] + "1"
			_, err := v.Verify(p)
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	t.Run("extra field", func(t *testing.T) {
		p := signedPayload(v, now)
		p["is_admin"] = "true"
		_, err := v.Verify(p)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("other bot token", func(t *testing.T) {
		other := NewVerifier("999:other", time.Hour).WithClock(v.now)
		_, err := v.Verify(signedPayload(other, now))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestVerifyStale(t *testing.T) {
	v := newVerifier()

	_, err := v.Verify(signedPayload(v, now.Add(-25*time.Hour)))
	require.ErrorIs(t, err, ErrStaleAuth)

	_, err = v.Verify(signedPayload(v, now.Add(10*time.Minute)))
	require.ErrorIs(t, err, ErrStaleAuth)

	_, err = v.Verify(signedPayload(v, now.Add(-24*time.Hour)))
	require.NoError(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	v := newVerifier()

	tests := map[string]func(map[string]string){
		"missing hash": func(p map[string]string) { delete(p, "hash") },
		"non hex hash": func(p map[string]string) { p["hash"] = "zz" },
		"bad id": func(p map[string]string) {
			p["id"] = "abc"
			p["hash"] = v.Sign(p)
		},
		"bad auth_date": func(p map[string]string) {
			p["auth_date"] = "yesterday"
			p["hash"] = v.Sign(p)
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := signedPayload(v, now)
			mutate(p)
			_, err := v.Verify(p)
			require.True(t, errors.Is(err, ErrMalformedPayload), "got %v", err)
		})
	}
}
