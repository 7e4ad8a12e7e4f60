package points

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// CollectRequest is a claim attempt. Telegram is nil for a manual claim and
// holds the raw login widget fields otherwise.
type CollectRequest struct {
	ID       string
	Secret   string
	Form     plasticboy.CollectorForm
	Telegram map[string]string
}

// Collect validates a claim against the point's secret, state and schedule,
// attaches the collector identity and commits the transition.
//
// Checks run in a fixed order: existence, secret, status, schedule, form,
// Telegram identity. The final write is the store's conditional update, so
// of several concurrent claims exactly one succeeds and the rest get
// ErrAlreadyCollected.
func (s *Service) Collect(ctx context.Context, req CollectRequest) (plasticboy.Point, error) {
	p, err := s.store.GetPoint(ctx, req.ID)
	if err != nil {
		if errors.Is(err, plasticboy.ErrNotFound) {
			return plasticboy.Point{}, err
		}
		return plasticboy.Point{}, fmt.Errorf("loading point: %w", err)
	}

	if !secretsEqual(req.Secret, p.QRSecret) {
		s.logger.Warn("collect rejected", "point_id", p.ID, "reason", "invalid secret")
		return plasticboy.Point{}, plasticboy.ErrInvalidSecret
	}
	if p.Status != plasticboy.StatusAvailable {
		return plasticboy.Point{}, plasticboy.ErrAlreadyCollected
	}

	now := s.now().UTC()
	if !p.Claimable(now) {
		return plasticboy.Point{}, &plasticboy.NotYetAvailableError{ScheduledTime: p.ScheduledTime}
	}

	form := req.Form
	if err := form.Validate(s.limits); err != nil {
		return plasticboy.Point{}, err
	}

	info := plasticboy.CollectorInfo{
		Name:       form.Name,
		Signature:  form.Signature,
		Selfie:     form.Selfie,
		AuthMethod: plasticboy.AuthManual,
	}
	if req.Telegram != nil {
		ident, err := s.verifyTelegram(req.Telegram)
		if err != nil {
			s.logger.Warn("collect rejected", "point_id", p.ID, "reason", "untrusted identity", "error", err)
			return plasticboy.Point{}, err
		}
		info.AuthMethod = plasticboy.AuthTelegram
		info.Telegram = &ident
	}

	if err := s.store.MarkCollected(ctx, p.ID, now, info); err != nil {
		if errors.Is(err, plasticboy.ErrAlreadyCollected) || errors.Is(err, plasticboy.ErrNotFound) {
			return plasticboy.Point{}, err
		}
		return plasticboy.Point{}, fmt.Errorf("marking point collected: %w", err)
	}

	p.Status = plasticboy.StatusCollected
	p.CollectedAt = &now
	p.Collector = &info

	s.logger.Info("point collected", "point_id", p.ID, "auth_method", info.AuthMethod)
	s.publish(events.PointCollected, p)
	return p, nil
}

func (s *Service) verifyTelegram(payload map[string]string) (plasticboy.TelegramIdentity, error) {
	if s.verifier == nil {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: telegram login is not configured", plasticboy.ErrUntrustedIdentity)
	}
	ident, err := s.verifier.Verify(payload)
	if err != nil {
		return plasticboy.TelegramIdentity{}, fmt.Errorf("%w: %w", plasticboy.ErrUntrustedIdentity, err)
	}
	return ident, nil
}

// secretsEqual compares fixed-size digests so neither content nor length of
// the supplied secret affects timing.
func secretsEqual(supplied, stored string) bool {
	a := sha256.Sum256([]byte(supplied))
	b := sha256.Sum256([]byte(stored))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1 && stored != ""
}
