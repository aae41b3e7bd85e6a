package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	Subject  string   `json:"subject"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	TokenIAT int64    `json:"token_iat,omitempty"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoint
func RegisterWhoamiEndpoint(s *server.Server) {
	whoamiRouter := s.Router.PathPrefix("/whoami").Subrouter()
	whoamiRouter.Use(s.TokenMiddleware.Middleware)

	whoamiRouter.HandleFunc("", handleWhoami(s.Config.EmailClaim, s.Config.RoleClaim)).Methods("GET")
}

func handleWhoami(emailClaim, roleClaim string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			http.Error(w, "Unable to determine identity", http.StatusUnauthorized)
			return
		}

		response := WhoamiResponse{
			Subject: id.Subject,
			Roles:   id.Claims[roleClaim],
		}
		response.Email, _ = id.Claim(emailClaim)
		if !id.IssuedAt.IsZero() {
			response.TokenIAT = id.IssuedAt.Unix()
		}

		respondWithJSON(w, http.StatusOK, response)
	}
}
