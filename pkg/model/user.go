package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an identity owned by the external registration flow.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;type:text"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

// BeforeSave keeps stored emails lower-cased so membership lookups can
// compare against a normalized claim.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail returns the comparison form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
