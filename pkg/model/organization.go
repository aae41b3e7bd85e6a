package model

import "time"

// Organization is a tenant.
type Organization struct {
	ID        string    `gorm:"column:id;primaryKey;type:text"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Organization) TableName() string {
	return "organizations"
}
