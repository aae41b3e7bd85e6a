package model

import (
	"time"

	"github.com/google/uuid"
)

// GroupAdmin is the reserved group name that grants tenant administration.
const GroupAdmin = "Admin"

// UserGroup grants a named role in an organization to a user.
//
// OrganizationID and UserID are authoritative for storage. Organization and
// User are the loaded entities and must agree with the keys.
type UserGroup struct {
	ID             string       `gorm:"column:id;primaryKey;type:text"`
	Name           string       `gorm:"column:name;type:text;not null;uniqueIndex:idx_user_groups_org_user_name,priority:3"`
	OrganizationID string       `gorm:"column:organization_id;type:text;not null;uniqueIndex:idx_user_groups_org_user_name,priority:1"`
	Organization   Organization `gorm:"foreignKey:OrganizationID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	UserID         string       `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_user_groups_org_user_name,priority:2"`
	User           User         `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}

// NewUserGroup builds a group for already resolved entities. The id is
// generated here and never reassigned; the foreign keys are taken from the
// entities themselves.
func NewUserGroup(name string, organization Organization, user User) *UserGroup {
	return &UserGroup{
		ID:             uuid.NewString(),
		Name:           name,
		OrganizationID: organization.ID,
		Organization:   organization,
		UserID:         user.ID,
		User:           user,
	}
}

// IsAdmin reports whether the group is the reserved administrator group.
func (g *UserGroup) IsAdmin() bool {
	return g.Name == GroupAdmin
}
