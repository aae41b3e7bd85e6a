package store

import "context"

// HealthStore provides health check operations
type HealthStore interface {
	// CheckReadiness verifies the membership tables can be queried
	CheckReadiness(ctx context.Context) error
}
