package server

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const adminPasswordHeader = "X-Admin-Password"

// adminAuthMiddleware admits requests whose admin password, sent in the
// X-Admin-Password header or as a bearer token, matches hash.
func adminAuthMiddleware(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			password := adminPassword(r)
			if password == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func adminPassword(r *http.Request) string {
	if p := r.Header.Get(adminPasswordHeader); p != "" {
		return p
	}
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
