package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const adminUser = "admin"

// HashAdminPassword returns the bcrypt hash that guards the admin routes.
func HashAdminPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// requireAdmin is middleware that checks HTTP basic credentials against the
// configured admin password hash.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}
		if subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) != 1 {
			slog.Warn("admin login with unknown user", "user", user, "remote", r.RemoteAddr)
			unauthorized(w)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.config.AdminPasswordHash), []byte(pass)); err != nil {
			slog.Warn("admin login failed", "remote", r.RemoteAddr)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="examtrainer", charset="UTF-8"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}
