// Package middleware holds the HTTP middleware in front of the endpoints.
//
// TokenAuthenticator verifies bearer tokens and stores an identity.Identity
// on the request context. RequireOrganizationAdmin and RequireRole are
// policy gates that read that identity.
package middleware
