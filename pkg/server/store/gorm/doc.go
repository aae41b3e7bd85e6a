// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Driver errors are classified here: record-not-found becomes
// store.NotFoundError, unique and foreign key violations (postgres SQLSTATE
// 23505/23503, gorm translated errors, sqlite constraint messages) become
// store.ConstraintViolationError, and everything else, including context
// cancellation, becomes store.OperationalError.
package gorm
