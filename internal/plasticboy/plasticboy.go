// Package plasticboy defines the core domain types of the point hunt: points,
// their collection state and the identity attached to a collection.
// It has no external dependencies.
package plasticboy

import (
	"context"
	"iter"
	"time"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusCollected Status = "collected"
)

type AuthMethod string

const (
	AuthManual   AuthMethod = "manual"
	AuthTelegram AuthMethod = "telegram"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a single placed collectible.
type Point struct {
	ID            string
	Name          string
	Coordinates   Coordinates
	QRSecret      string
	QRCode        string
	Status        Status
	CreatedAt     time.Time
	ScheduledTime time.Time
	CollectedAt   *time.Time
	Collector     *CollectorInfo
}

// Claimable reports whether a player may collect p at now.
func (p Point) Claimable(now time.Time) bool {
	return p.Status == StatusAvailable && !now.Before(p.ScheduledTime)
}

// Visible reports whether the scheduled reveal of p has passed.
func (p Point) Visible(now time.Time) bool {
	return !now.Before(p.ScheduledTime)
}

// Redacted returns a copy of p safe to hand to players: the secret, the code
// and the collector identity are stripped.
func (p Point) Redacted() Point {
	p.QRSecret = ""
	p.QRCode = ""
	p.Collector = nil
	return p
}

type CollectorInfo struct {
	Name       string            `json:"name"`
	Signature  string            `json:"signature"`
	Selfie     string            `json:"selfie,omitempty"`
	AuthMethod AuthMethod        `json:"authMethod"`
	Telegram   *TelegramIdentity `json:"telegramData,omitempty"`
}

// TelegramIdentity is a Telegram login payload that passed signature and
// freshness verification.
type TelegramIdentity struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Username  string    `json:"username,omitempty"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	AuthDate  time.Time `json:"auth_date"`
	Hash      string    `json:"hash"`
}

// PointFilter narrows a point scan. Zero values match everything.
type PointFilter struct {
	Status     Status
	AuthMethod AuthMethod
}

// Store is the durable record of every point.
//
// MarkCollected is the only way a point changes state: it must flip an
// available point to collected and attach info in one atomic conditional
// write. It returns ErrAlreadyCollected when the point is no longer available
// and ErrNotFound when it does not exist.
type Store interface {
	CreatePoint(ctx context.Context, p Point) error
	GetPoint(ctx context.Context, id string) (Point, error)
	Points(ctx context.Context, filter PointFilter) iter.Seq2[Point, error]
	MarkCollected(ctx context.Context, id string, at time.Time, info CollectorInfo) error
	DeletePoint(ctx context.Context, id string) error
}
