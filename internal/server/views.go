package server

import (
	"encoding/json"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error         string     `json:"error"`
	Kind          string     `json:"kind,omitempty"`
	Field         string     `json:"field,omitempty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// PointResponse is the player view of a point.
type PointResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Coordinates   plasticboy.Coordinates `json:"coordinates"`
	Status        plasticboy.Status      `json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	ScheduledTime time.Time              `json:"scheduledTime"`
	CollectedAt   *time.Time             `json:"collectedAt,omitempty"`
}

// AdminPointResponse adds the secret material and collector identity.
type AdminPointResponse struct {
	PointResponse
	QRSecret  string                    `json:"qrSecret"`
	QRCode    string                    `json:"qrCode"`
	Collector *plasticboy.CollectorInfo `json:"collectorInfo,omitempty"`
}

// CollectRequest is the request body for POST /api/points/{id}/collect.
// Telegram carries the login widget payload verbatim; omit it for a manual
// claim.
type CollectRequest struct {
	ID        string                     `path:"id" json:"-"`
	Secret    string                     `json:"secret"`
	Name      string                     `json:"name"`
	Signature string                     `json:"signature"`
	Selfie    string                     `json:"selfie,omitempty"`
	Telegram  map[string]json.RawMessage `json:"telegram,omitempty"`
}

// CreatePointRequest is the request body for POST /api/admin/points.
type CreatePointRequest struct {
	Name         string                  `json:"name"`
	Coordinates  *plasticboy.Coordinates `json:"coordinates"`
	DelayMinutes int                     `json:"delayMinutes"`
}

// EventResponse is one entry of the live point feed.
type EventResponse struct {
	Type  string        `json:"type"`
	Point PointResponse `json:"point"`
	At    time.Time     `json:"at"`
}

type PointIDParams struct {
	ID string `path:"id"`
}

func playerView(p plasticboy.Point) PointResponse {
	return PointResponse{
		ID:            p.ID,
		Name:          p.Name,
		Coordinates:   p.Coordinates,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
		ScheduledTime: p.ScheduledTime,
		CollectedAt:   p.CollectedAt,
	}
}

func adminView(p plasticboy.Point) AdminPointResponse {
	return AdminPointResponse{
		PointResponse: playerView(p),
		QRSecret:      p.QRSecret,
		QRCode:        p.QRCode,
		Collector:     p.Collector,
	}
}

func eventView(ev events.Event) EventResponse {
	return EventResponse{Type: string(ev.Type), Point: playerView(ev.Point), At: ev.At}
}

// telegramFields flattens the login widget payload to the string form its
// signature was computed over. Numbers keep their original digits. Nested
// values are passed through as raw JSON so they fail verification.
func telegramFields(raw map[string]json.RawMessage) map[string]string {
	if raw == nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if string(v) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}
