package server

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codenameh8m/plasticboy-sub000/internal/leaderboard"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
	"github.com/codenameh8m/plasticboy-sub000/internal/points"
)

// PointService is the point lifecycle as the HTTP layer sees it.
type PointService interface {
	CreatePoint(ctx context.Context, name string, coords plasticboy.Coordinates, delay time.Duration) (plasticboy.Point, error)
	ListPoints(ctx context.Context, audience points.Audience) iter.Seq2[plasticboy.Point, error]
	GetPoint(ctx context.Context, id string, audience points.Audience) (plasticboy.Point, error)
	Collect(ctx context.Context, req points.CollectRequest) (plasticboy.Point, error)
	RenderCode(ctx context.Context, id string) ([]byte, error)
	DeletePoint(ctx context.Context, id string) error
}

type Aggregator interface {
	Compute(ctx context.Context) (leaderboard.Leaderboard, error)
	PointStats(ctx context.Context) (leaderboard.PointStats, error)
}

func handleListPoints(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := []PointResponse{}
		for p, err := range svc.ListPoints(r.Context(), points.AudiencePlayer) {
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			resp = append(resp, playerView(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetPoint(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetPoint(r.Context(), chi.URLParam(r, "id"), points.AudiencePlayer)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, playerView(p))
	}
}

// handleCollect claims a point. The secret may come in the body or, as in
// the printed claim link, in the query string.
func handleCollect(logger *slog.Logger, svc PointService, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)

		var req CollectRequest
		if err := readJSON(r, &req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Secret == "" {
			req.Secret = r.URL.Query().Get("secret")
		}

		p, err := svc.Collect(r.Context(), points.CollectRequest{
			ID:     chi.URLParam(r, "id"),
			Secret: req.Secret,
			Form: plasticboy.CollectorForm{
				Name:      req.Name,
				Signature: req.Signature,
				Selfie:    req.Selfie,
			},
			Telegram: telegramFields(req.Telegram),
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, playerView(p))
	}
}

func handleLeaderboard(logger *slog.Logger, agg Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := agg.Compute(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if lb.Entries == nil {
			lb.Entries = []leaderboard.Entry{}
		}
		writeJSON(w, http.StatusOK, lb)
	}
}

func handleStats(logger *slog.Logger, agg Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := agg.PointStats(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
