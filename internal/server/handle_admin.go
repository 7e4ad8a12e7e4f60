package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
	"github.com/codenameh8m/plasticboy-sub000/internal/points"
)

func handleAdminListPoints(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := []AdminPointResponse{}
		for p, err := range svc.ListPoints(r.Context(), points.AudienceAdmin) {
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			resp = append(resp, adminView(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminCreatePoint(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Coordinates == nil {
			writeDomainError(w, logger, &plasticboy.ValidationError{Field: "coordinates", Reason: "is required"})
			return
		}

		// Range-check before converting so huge values cannot wrap around.
		if req.DelayMinutes > int(plasticboy.MaxRevealDelay/time.Minute) {
			writeDomainError(w, logger, &plasticboy.ValidationError{Field: "delayMinutes", Reason: "must be at most one year"})
			return
		}

		p, err := svc.CreatePoint(r.Context(), req.Name, *req.Coordinates, time.Duration(req.DelayMinutes)*time.Minute)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, adminView(p))
	}
}

func handleAdminDeletePoint(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeletePoint(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminPointQR(logger *slog.Logger, svc PointService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := svc.RenderCode(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
