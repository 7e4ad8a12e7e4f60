package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind plasticboy.Kind) int {
	switch kind {
	case plasticboy.KindValidation:
		return http.StatusBadRequest
	case plasticboy.KindNotFound:
		return http.StatusNotFound
	case plasticboy.KindInvalidSecret:
		return http.StatusForbidden
	case plasticboy.KindAlreadyCollected:
		return http.StatusConflict
	case plasticboy.KindNotYetAvailable:
		return http.StatusTooEarly
	case plasticboy.KindUntrustedIdentity:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError reports err with the status and kind its classification
// calls for. Infrastructure failures are logged and hidden from the client.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := plasticboy.KindOf(err)
	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}

	var ve *plasticboy.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	var nya *plasticboy.NotYetAvailableError
	if errors.As(err, &nya) {
		t := nya.ScheduledTime
		resp.ScheduledTime = &t
	}

	switch kind {
	case plasticboy.KindInternal:
		logger.Error("request failed", "error", err)
		resp.Error = "internal error"
	case plasticboy.KindEncoding:
		logger.Error("qr encoding failed", "error", err)
		resp.Error = "could not render qr code"
	case plasticboy.KindUntrustedIdentity:
		logger.Warn("telegram identity rejected", "error", err)
		resp.Error = "untrusted identity"
	}

	writeJSON(w, statusFor(kind), resp)
}
