// Command tenantctl runs and administers the tenant authorization service.
//
// The service answers one question for its HTTP routes: does the caller
// administer the organization named on the request? Membership lives in the
// user_groups table; a user administers an organization when they belong to
// its "Admin" group.
//
// # Quick Start
//
//	# Create or upgrade the schema
//	tenantctl db migrate
//
//	# Make a user an administrator of an organization
//	tenantctl group create <user-id> <organization-id>
//
//	# Start the server
//	TENANT_AUTHZ_SIGNING_SECRET=... tenantctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string, or a sqlite file path
//   - TENANT_AUTHZ_CONFIG_PATH: directory holding tenant-authz.yml
//   - TENANT_AUTHZ_SIGNING_SECRET: HS256 secret for bearer tokens
//   - TENANT_AUTHZ_LOG_LEVEL: log level (debug, info, warn, error)
//   - PORT: server port (default: 8000)
package main
