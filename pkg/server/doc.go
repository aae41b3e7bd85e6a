// Package server provides the HTTP surface of tenant-authz.
//
// # Server Setup
//
//	srv := server.NewServer(cfg, db, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Router: gorilla/mux request router
//   - MembershipStore, HealthStore: persistence
//   - Evaluator: tenant-admin decisions
//   - UserGroups: group provisioning
//   - TokenMiddleware: bearer token verification
//
// # Endpoints
//
//   - GET  /ready - store readiness
//   - GET  /organization/admin - tenant-admin probe (OrganizationId header)
//   - POST /organizations/{organization}/groups - provision a group (GlobalAdmin)
package server
