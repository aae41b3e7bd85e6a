// Package identity carries the authenticated caller through a request.
//
// An Identity is built by the token middleware from verified claims and
// stored on the request context:
//
//	id := identity.New(subject, identity.ClaimsFromMap(tokenClaims))
//	ctx = identity.Set(ctx, id)
//
//	// later
//	id, ok := identity.Get(ctx)
//	email, ok := id.Claim(identity.ClaimEmail)
//
// Claim lookups report absence explicitly. A missing claim and a blank one
// both yield ok == false.
package identity
