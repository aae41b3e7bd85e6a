// Package config provides configuration management for tenant-authz.
//
// Values are resolved in order: built-in defaults, then
// $TENANT_AUTHZ_CONFIG_PATH/tenant-authz.yml, then environment variables.
// Each attribute remembers which layer supplied it.
//
// # Key Configuration Options
//
//   - DATABASE_URL: membership store connection
//   - TENANT_AUTHZ_SIGNING_SECRET: HS256 bearer token secret
//   - TENANT_AUTHZ_TENANT_HEADER: header carrying the organization id
//   - TENANT_AUTHZ_EMAIL_CLAIM: claim type holding the caller's email
//   - TENANT_AUTHZ_LOG_LEVEL: logging verbosity
//   - TENANT_AUTHZ_STORE_TIMEOUT: per-session store deadline (e.g. 5s)
package config
