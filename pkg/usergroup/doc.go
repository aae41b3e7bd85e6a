// Package usergroup provisions user groups.
//
// CreateUserGroup resolves the user and the organization inside one store
// session, binds a new group to both and inserts it. There is no
// pre-existence check: the unique (organization, user, name) index is the
// only arbiter, so a repeated call fails with store.ErrConstraintViolation.
// Callers that want "create if missing" semantics can test the error with
// IsAlreadyProvisioned.
package usergroup
