package models

import (
	"time"
)

// ProjectMember is the join row between projects and users. The composite
// primary key makes membership adds idempotent at the storage layer.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey" json:"project_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
