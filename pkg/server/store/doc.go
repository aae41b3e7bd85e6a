// Package store provides storage abstractions for tenant membership.
//
// This package defines the interfaces the authorization core needs from the
// membership database, allowing the group service and the evaluator to be
// decoupled from the specific database implementation. The gorm subpackage
// holds the concrete implementation.
//
// # Available Stores
//
//   - MembershipStore: transactional sessions over users, organizations and
//     user groups
//   - HealthStore: readiness checks
//
// # Errors
//
// Every failure is classified into one of three sentinels:
//
//   - ErrNotFound: a referenced entity does not exist
//   - ErrConstraintViolation: a write broke a uniqueness or foreign key constraint
//   - ErrOperational: the store could not answer (connection, timeout, cancellation)
//
// # Usage
//
//	err := memberships.WithSession(ctx, func(s store.MembershipSession) error {
//	    group, err := s.FindUserGroup(orgID, email, model.GroupAdmin)
//	    ...
//	})
//	if errors.Is(err, store.ErrNotFound) {
//	    // Handle not found
//	}
package store
