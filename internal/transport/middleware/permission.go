package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/taskboard/internal/auth"
)

// RequirePermission gates a route on a single permission key. A request with
// no authenticated user gets 401; an authenticated user whose resolved set
// lacks the key gets 403. The two cases are never conflated.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				writeDenied(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !user.HasPermission(permission) {
				slog.Warn("access denied: missing permission",
					"user_id", user.ID,
					"required_permission", permission)
				writeDenied(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission passes when the user holds at least one of the keys.
func RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				writeDenied(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, p := range permissions {
				if user.HasPermission(p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("access denied: missing permissions",
				"user_id", user.ID,
				"required_permissions", permissions)
			writeDenied(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": message,
	})
}
