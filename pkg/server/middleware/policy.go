package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/tenant-authz/pkg/authz"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
)

// RequireOrganizationAdmin lets a request through only when the evaluator
// decides the caller administers the organization named by the tenant
// header. Denials answer 403 with a body that does not reveal whether the
// organization exists. Store faults answer 503.
func RequireOrganizationAdmin(e *authz.Evaluator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := e.EvaluateRequest(r)
			switch {
			case decision.Allowed():
				next.ServeHTTP(w, r)
			case decision.Operational():
				respondWithError(w, http.StatusServiceUnavailable, "service unavailable")
			default:
				respondWithError(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}

// RequireRole lets a request through only when the caller's roleClaim
// carries role.
func RequireRole(roleClaim, role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := identity.Get(r.Context())
			if !id.HasRole(roleClaim, role) {
				respondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondWithError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
