package plasticboy

import (
	"encoding/base64"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxNameLength = 100

// MaxRevealDelay is the furthest ahead a point may be scheduled.
const MaxRevealDelay = 365 * 24 * time.Hour

// CollectorForm is what a player fills in on the claim page.
type CollectorForm struct {
	Name      string
	Signature string
	Selfie    string
}

// FormLimits bounds the size of uploaded form material.
type FormLimits struct {
	MaxSignatureBytes int
	MaxSelfieBytes    int
}

var selfieTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ValidateDelay checks a reveal delay is neither negative nor beyond
// MaxRevealDelay.
func ValidateDelay(d time.Duration) error {
	switch {
	case d < 0:
		return invalid("delayMinutes", "must not be negative")
	case d > MaxRevealDelay:
		return invalid("delayMinutes", "must be at most one year")
	}
	return nil
}

// ValidatePointName trims name and checks it is usable as a label.
func ValidatePointName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", invalid("name", "is too long")
	}
	return name, nil
}

func ValidateCoordinates(c Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return invalid("coordinates.lat", "must be within [-90, 90]")
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return invalid("coordinates.lng", "must be within [-180, 180]")
	}
	return nil
}

// Validate normalizes the form in place and enforces lim.
func (f *CollectorForm) Validate(lim FormLimits) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Signature = strings.TrimSpace(f.Signature)
	f.Selfie = strings.TrimSpace(f.Selfie)

	if f.Name == "" {
		return invalid("name", "is required")
	}
	if utf8.RuneCountInString(f.Name) > MaxNameLength {
		return invalid("name", "is too long")
	}
	if f.Signature == "" {
		return invalid("signature", "is required")
	}
	if lim.MaxSignatureBytes > 0 && len(f.Signature) > lim.MaxSignatureBytes {
		return invalid("signature", "is too large")
	}
	if f.Selfie != "" {
		if err := validateSelfie(f.Selfie, lim.MaxSelfieBytes); err != nil {
			return err
		}
	}
	return nil
}

// validateSelfie accepts a base64 data URI of an allowed image type whose
// decoded size is within max.
func validateSelfie(uri string, max int) error {
	meta, data, ok := strings.Cut(uri, ",")
	if !ok {
		return invalid("selfie", "must be a data URI")
	}
	mediaType, found := strings.CutPrefix(meta, "data:")
	if !found {
		return invalid("selfie", "must be a data URI")
	}
	mediaType, found = strings.CutSuffix(mediaType, ";base64")
	if !found {
		return invalid("selfie", "must be base64 encoded")
	}
	if !slices.Contains(selfieTypes, mediaType) {
		return invalid("selfie", "unsupported image type")
	}
	if max > 0 && base64.StdEncoding.DecodedLen(len(data)) > max {
		return invalid("selfie", "is too large")
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return invalid("selfie", "is not valid base64")
	}
	return nil
}
