// Package qrcode mints point identifiers and collection secrets and renders
// the claim link into a scannable PNG.
package qrcode

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	goqrcode "github.com/skip2/go-qrcode"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// SecretBytes is the amount of randomness behind every collection secret.
const SecretBytes = 32

// ImageSize is the edge length in pixels of rendered codes.
const ImageSize = 512

// NewID returns a random version 4 UUID.
func NewID() string {
	return uuid.NewString()
}

// NewSecret returns a URL-safe token carrying SecretBytes of entropy.
func NewSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ClaimURL builds the link a printed code points at.
func ClaimURL(baseURL, id, secret string) string {
	return strings.TrimRight(baseURL, "/") + "/collect/" + url.PathEscape(id) +
		"?secret=" + url.QueryEscape(secret)
}

// Render encodes content as a PNG QR code. It has no side effects; a failure
// means the content can never be encoded and is reported as ErrEncoding.
func Render(content string) ([]byte, error) {
	png, err := goqrcode.Encode(content, goqrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", plasticboy.ErrEncoding, err)
	}
	return png, nil
}

// DataURI wraps PNG bytes for embedding in JSON payloads.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// Generator is the default source of ids, secrets and images.
type Generator struct{}

func (Generator) NewID() string                         { return NewID() }
func (Generator) NewSecret() (string, error)            { return NewSecret() }
func (Generator) Render(content string) ([]byte, error) { return Render(content) }
