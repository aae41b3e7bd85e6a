package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/db"
	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
	"github.com/doodlesbykumbi/tenant-authz/pkg/model"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/tenant-authz/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/tenant-authz/pkg/usergroup"
)

// groupCreateCmd represents the group create command
var groupCreateCmd = &cobra.Command{
	Use:   "create <user-id> <organization-id> [name]",
	Short: "Add a user to an organization group",
	Long: `Add a user to an organization group.

The user and the organization must already exist. The group name defaults
to "Admin", which makes the user an administrator of the organization.
Creating the same group for the same user and organization twice fails.

Example:
  tenantctl group create 5f0c... 9b1e...
  tenantctl group create 5f0c... 9b1e... Editors`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		name := model.GroupAdmin
		if len(args) == 3 {
			name = args[2]
		}

		group, err := createGroup(args[0], args[1], name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create group: %v\n", err)
			os.Exit(exitCode(err))
		}

		fmt.Fprintf(os.Stderr, "Created group '%s' in organization '%s'\n", group.Name, group.OrganizationID)
		fmt.Println(group.ID)
	},
}

func init() {
	groupCmd.AddCommand(groupCreateCmd)
}

func createGroup(userID, organizationID, name string) (*model.UserGroup, error) {
	cfg := config.Get()
	conn, err := db.Connect(db.Config{URL: cfg.DatabaseURL, LogLevel: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	membership := gormstore.NewMembershipStore(conn).WithTimeout(cfg.StoreTimeout)

	// audit records name the operator account as the actor
	actor := os.Getenv("USER")
	if actor == "" {
		actor = "tenantctl"
	}
	ctx := identity.Set(context.Background(), identity.New(actor, nil))

	return usergroup.NewService(membership).Create(ctx, userID, organizationID, name)
}

// exitCode separates rejected input from an unreachable store so scripts
// can retry only the latter.
func exitCode(err error) int {
	switch {
	case errors.Is(err, store.ErrOperational):
		return 3
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConstraintViolation), errors.Is(err, usergroup.ErrInvalidGroupName):
		return 2
	default:
		return 1
	}
}
