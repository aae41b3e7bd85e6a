package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
)

// Migrate creates the membership schema with gorm AutoMigrate. It backs
// sqlite databases and tests; postgres deployments use the SQL migrations
// applied by `tenantctl db migrate`.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&model.User{}, &model.Organization{}, &model.UserGroup{}); err != nil {
		return fmt.Errorf("failed to migrate membership schema: %w", err)
	}
	return nil
}
