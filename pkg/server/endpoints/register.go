package endpoints

import (
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterWhoamiEndpoint(srv)
	RegisterAdminEndpoints(srv)
	RegisterGroupEndpoints(srv)
}
