package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// Ensure HealthStore implements store.HealthStore
var _ store.HealthStore = (*HealthStore)(nil)

// HealthStore provides health check operations using GORM
type HealthStore struct {
	db *gorm.DB
}

// NewHealthStore creates a new HealthStore
func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

// CheckReadiness runs a bounded query against organizations
func (s *HealthStore) CheckReadiness(ctx context.Context) error {
	var orgs []model.Organization
	if err := s.db.WithContext(ctx).Limit(1).Find(&orgs).Error; err != nil {
		return &store.OperationalError{Op: "readiness", Err: err}
	}
	return nil
}
