package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/codenameh8m/plasticboy-sub000/internal/handler/health"
)

const defaultMaxCollectBytes = 8 << 20

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	maxBody := deps.MaxCollectBytes
	if maxBody <= 0 {
		maxBody = defaultMaxCollectBytes
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Plasticboy API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Health).Routes())
	r.Get("/ws/points", handlePointFeed(logger, deps.Broker))

	// Player routes.
	r.Route("/api", func(r chi.Router) {
		r.Get("/points", handleListPoints(logger, deps.Points))
		r.Get("/points/{id}", handleGetPoint(logger, deps.Points))
		r.Post("/points/{id}/collect", handleCollect(logger, deps.Points, maxBody))
		r.Get("/leaderboard", handleLeaderboard(logger, deps.Leaderboard))
		r.Get("/stats", handleStats(logger, deps.Leaderboard))
		r.Get("/events", handleEvents(deps.Broker))

		// Admin routes, password protected.
		r.Route("/admin/points", func(r chi.Router) {
			r.Use(adminAuthMiddleware(deps.AdminPasswordHash))
			r.Get("/", handleAdminListPoints(logger, deps.Points))
			r.Post("/", handleAdminCreatePoint(logger, deps.Points))
			r.Delete("/{id}", handleAdminDeletePoint(logger, deps.Points))
			r.Get("/{id}/qr.png", handleAdminPointQR(logger, deps.Points))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
