// Package authz decides whether a caller administers an organization.
//
// A caller is a tenant admin when the store holds a user group named
// "Admin" in the requested organization whose user has the caller's email.
// The evaluator reads the organization from a request header and the email
// from a verified identity claim, performs a single membership lookup and
// returns a Decision.
//
// Decisions never leak whether the organization exists. Store failures fail
// closed: the Decision is a Fail with Err set, so callers can answer 503
// instead of 403.
package authz
