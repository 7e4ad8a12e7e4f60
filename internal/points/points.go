// Package points owns the point lifecycle: creation with scheduled reveal,
// listing, deletion, and the collection transaction that moves a point from
// available to collected exactly once.
package points

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
	"github.com/codenameh8m/plasticboy-sub000/internal/qrcode"
)

// Generator mints identifiers and secrets and renders claim links.
type Generator interface {
	NewID() string
	NewSecret() (string, error)
	Render(content string) ([]byte, error)
}

// IdentityVerifier checks a raw Telegram login payload.
type IdentityVerifier interface {
	Verify(payload map[string]string) (plasticboy.TelegramIdentity, error)
}

type Publisher interface {
	Publish(ev events.Event)
}

type Audience int

const (
	AudiencePlayer Audience = iota
	AudienceAdmin
)

type Options struct {
	Generator Generator
	// Verifier may be nil, in which case every Telegram payload is rejected.
	Verifier IdentityVerifier
	Events   Publisher
	Logger   *slog.Logger
	BaseURL  string
	Limits   plasticboy.FormLimits
	Now      func() time.Time
}

type Service struct {
	store    plasticboy.Store
	gen      Generator
	verifier IdentityVerifier
	events   Publisher
	logger   *slog.Logger
	baseURL  string
	limits   plasticboy.FormLimits
	now      func() time.Time
}

func NewService(store plasticboy.Store, opts Options) *Service {
	s := &Service{
		store:    store,
		gen:      opts.Generator,
		verifier: opts.Verifier,
		events:   opts.Events,
		logger:   opts.Logger,
		baseURL:  opts.BaseURL,
		limits:   opts.Limits,
		now:      opts.Now,
	}
	if s.gen == nil {
		s.gen = qrcode.Generator{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.With("component", "points")
	return s
}

// CreatePoint validates the input, mints an id and secret, renders the code
// and persists an available point revealed at now+delay.
func (s *Service) CreatePoint(ctx context.Context, name string, coords plasticboy.Coordinates, delay time.Duration) (plasticboy.Point, error) {
	name, err := plasticboy.ValidatePointName(name)
	if err != nil {
		return plasticboy.Point{}, err
	}
	if err := plasticboy.ValidateCoordinates(coords); err != nil {
		return plasticboy.Point{}, err
	}
	if err := plasticboy.ValidateDelay(delay); err != nil {
		return plasticboy.Point{}, err
	}

	secret, err := s.gen.NewSecret()
	if err != nil {
		return plasticboy.Point{}, fmt.Errorf("generating secret: %w", err)
	}
	id := s.gen.NewID()

	png, err := s.gen.Render(qrcode.ClaimURL(s.baseURL, id, secret))
	if err != nil {
		s.logger.Error("rendering qr code", "point_id", id, "error", err)
		return plasticboy.Point{}, err
	}

	now := s.now().UTC()
	p := plasticboy.Point{
		ID:            id,
		Name:          name,
		Coordinates:   coords,
		QRSecret:      secret,
		QRCode:        qrcode.DataURI(png),
		Status:        plasticboy.StatusAvailable,
		CreatedAt:     now,
		ScheduledTime: now.Add(delay),
	}
	if err := s.store.CreatePoint(ctx, p); err != nil {
		return plasticboy.Point{}, fmt.Errorf("storing point: %w", err)
	}

	s.logger.Info("point created", "point_id", p.ID, "scheduled_time", p.ScheduledTime)
	s.publish(events.PointCreated, p)
	return p, nil
}

// ListPoints yields every point, newest first. Player listings never carry
// secrets, codes or collector identity. Not-yet-revealed points are included;
// clients render them as upcoming.
func (s *Service) ListPoints(ctx context.Context, audience Audience) iter.Seq2[plasticboy.Point, error] {
	return func(yield func(plasticboy.Point, error) bool) {
		for p, err := range s.store.Points(ctx, plasticboy.PointFilter{}) {
			if err != nil {
				yield(plasticboy.Point{}, fmt.Errorf("listing points: %w", err))
				return
			}
			if audience != AudienceAdmin {
				p = p.Redacted()
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// GetPoint returns one point in the view appropriate for audience.
func (s *Service) GetPoint(ctx context.Context, id string, audience Audience) (plasticboy.Point, error) {
	p, err := s.store.GetPoint(ctx, id)
	if err != nil {
		return plasticboy.Point{}, err
	}
	if audience != AudienceAdmin {
		p = p.Redacted()
	}
	return p, nil
}

// RenderCode re-renders the PNG for an existing point.
func (s *Service) RenderCode(ctx context.Context, id string) ([]byte, error) {
	p, err := s.store.GetPoint(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.gen.Render(qrcode.ClaimURL(s.baseURL, p.ID, p.QRSecret))
}

// DeletePoint removes a point for good. Deleting a missing point, including
// one already deleted, reports ErrNotFound.
func (s *Service) DeletePoint(ctx context.Context, id string) error {
	if err := s.store.DeletePoint(ctx, id); err != nil {
		if errors.Is(err, plasticboy.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting point: %w", err)
	}
	s.logger.Info("point deleted", "point_id", id)
	s.publish(events.PointDeleted, plasticboy.Point{ID: id})
	return nil
}

func (s *Service) publish(typ events.Type, p plasticboy.Point) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{Type: typ, Point: p.Redacted(), At: s.now().UTC()})
}
