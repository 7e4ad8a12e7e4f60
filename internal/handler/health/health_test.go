package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/handler/health"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func up(context.Context) error { return nil }

func down(msg string) health.CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name        string
		checks      map[string]health.Checker
		wantStatus  int
		wantOverall string
		wantChecks  map[string]string
	}{
		{
			name:        "no dependencies",
			wantStatus:  http.StatusOK,
			wantOverall: "ok",
			wantChecks:  map[string]string{},
		},
		{
			name: "store and cache up",
			checks: map[string]health.Checker{
				"sqlite": health.CheckFunc(up),
				"redis":  health.CheckFunc(up),
			},
			wantStatus:  http.StatusOK,
			wantOverall: "ok",
			wantChecks:  map[string]string{"sqlite": "ok", "redis": "ok"},
		},
		{
			name: "store down",
			checks: map[string]health.Checker{
				"postgres": down("connection reset"),
				"redis":    health.CheckFunc(up),
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: "degraded",
			wantChecks:  map[string]string{"postgres": "error", "redis": "ok"},
		},
		{
			name: "cache down",
			checks: map[string]health.Checker{
				"sqlite": health.CheckFunc(up),
				"redis":  down("refused"),
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: "degraded",
			wantChecks:  map[string]string{"sqlite": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(discard, tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var report health.Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if report.Status != tt.wantOverall {
				t.Errorf("overall = %q, want %q", report.Status, tt.wantOverall)
			}
			if len(report.Checks) != len(tt.wantChecks) {
				t.Errorf("got %d checks, want %d", len(report.Checks), len(tt.wantChecks))
			}
			for name, want := range tt.wantChecks {
				if got := report.Checks[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestRunTimesOutSlowCheck(t *testing.T) {
	slow := health.CheckFunc(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	})
	h := health.NewHandler(discard, map[string]health.Checker{"sqlite": slow})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	report := h.Run(ctx)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Run took %v", elapsed)
	}
	if report.Checks["sqlite"].Status != "error" {
		t.Errorf("sqlite status = %q, want error", report.Checks["sqlite"].Status)
	}
}
