package models

import (
	"time"

	"gorm.io/gorm"
)

// Invitation statuses. pending is the only non-terminal state.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

// Invitation asks a user to join a project. At most one pending invitation
// may exist per (project, recipient) pair; see the partial unique index
// created in AutoMigrate.
type Invitation struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`
	Project     *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	SenderID    uint           `gorm:"not null" json:"sender_id"`
	Sender      *User          `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uint           `gorm:"index;not null" json:"recipient_id"`
	Recipient   *User          `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Status      string         `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invitation) TableName() string { return "invitations" }

// IsPending reports whether the invitation can still transition.
func (i *Invitation) IsPending() bool { return i.Status == InvitationPending }
