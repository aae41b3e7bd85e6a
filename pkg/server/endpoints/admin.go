package endpoints

import (
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
)

// AdminResponse is returned to callers that pass the tenant-admin gate
type AdminResponse struct {
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	Group          string `json:"group"`
}

// RegisterAdminEndpoints registers endpoints gated on tenant administration
func RegisterAdminEndpoints(s *server.Server) {
	// GET /organization/admin - tenant from the tenant header
	s.Router.Handle("/organization/admin",
		s.RequireAdmin(handleOrganizationAdmin(s.Config.TenantHeader, s.Config.EmailClaim)),
	).Methods("GET")
}

func handleOrganizationAdmin(tenantHeader, emailClaim string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// the gate has already validated both values
		id, _ := identity.Get(r.Context())
		email, _ := id.Claim(emailClaim)

		respondWithJSON(w, http.StatusOK, AdminResponse{
			OrganizationID: strings.TrimSpace(r.Header.Values(tenantHeader)[0]),
			Email:          model.NormalizeEmail(email),
			Group:          model.GroupAdmin,
		})
	}
}
