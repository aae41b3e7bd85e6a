package store

import (
	"context"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
)

// MembershipSession is a transactional view of the membership tables. It is
// only valid inside the MembershipStore.WithSession callback that produced it.
type MembershipSession interface {
	// FindUserByID returns the user or a *NotFoundError.
	FindUserByID(id string) (*model.User, error)

	// FindOrganizationByID returns the organization or a *NotFoundError.
	FindOrganizationByID(id string) (*model.Organization, error)

	// FindUserGroup finds the group named name in organizationID whose user
	// has the given email. Email comparison is case-insensitive.
	// Returns ErrUserGroupNotFound when nothing matches.
	FindUserGroup(organizationID, email, name string) (*model.UserGroup, error)

	// InsertUserGroup persists a new group. A duplicate
	// (organization, user, name) or a dangling reference returns a
	// *ConstraintViolationError.
	InsertUserGroup(group *model.UserGroup) error
}

// MembershipStore hands out short-lived sessions.
type MembershipStore interface {
	// WithSession runs fn in a fresh transaction. The transaction commits
	// when fn returns nil and rolls back otherwise, including on panic.
	WithSession(ctx context.Context, fn func(MembershipSession) error) error
}
