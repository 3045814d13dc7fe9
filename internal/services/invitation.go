package services

import (
	"errors"
	"strings"

	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/pkg/logger"
	"github.com/collabspace/server/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RealtimeNotifier pushes events to a user's personal room. Satisfied by the
// realtime hub; nil when the realtime layer is not wired (tests).
type RealtimeNotifier interface {
	EmitToUser(userID uint, event string, payload interface{})
}

type InvitationService struct {
	db       *gorm.DB
	projects *ProjectService
	notifier RealtimeNotifier
}

func NewInvitationService(db *gorm.DB, notifier RealtimeNotifier) *InvitationService {
	return &InvitationService{
		db:       db,
		projects: NewProjectService(db),
		notifier: notifier,
	}
}

// AcceptResult carries both records updated by an accepted invitation.
type AcceptResult struct {
	Invitation *models.Invitation `json:"invitation"`
	Project    *models.Project    `json:"project"`
}

// Create invites a user to a project. The sender must be an owner or member,
// the recipient must not already be one, and at most one pending invitation
// may exist per (project, recipient) pair. The partial unique index on
// invitations closes the race between the existence check and the insert.
func (s *InvitationService) Create(projectID, senderID, recipientID uint) (*models.Invitation, error) {
	if senderID == recipientID {
		return nil, response.NewBadRequest("you cannot invite yourself")
	}

	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.projects.IsOwnerOrMember(projectID, senderID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("only project members can send invitations")
	}

	isMember, err := s.projects.IsOwnerOrMember(projectID, recipientID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, response.NewConflict("user is already a member of this project")
	}

	var pending int64
	err = s.db.Model(&models.Invitation{}).
		Where("project_id = ? AND recipient_id = ? AND status = ?", projectID, recipientID, models.InvitationPending).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, response.NewConflict("an invitation is already pending for this user")
	}

	invitation := models.Invitation{
		ProjectID:   projectID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.InvitationPending,
	}
	if err := s.db.Create(&invitation).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, response.NewConflict("an invitation is already pending for this user")
		}
		return nil, err
	}

	AuditInfo("invitation", "create", "invitation sent for project "+project.Name, &senderID, "")

	if s.notifier != nil {
		s.db.Preload("Project").Preload("Sender").First(&invitation, invitation.ID)
		s.notifier.EmitToUser(recipientID, "new-invitation", &invitation)
	}

	return &invitation, nil
}

// Accept transitions a pending invitation to accepted and adds the recipient
// to the project membership set. The status flip is a conditional update, so
// a second concurrent accept (or an accept after reject) affects zero rows
// and fails instead of silently succeeding.
func (s *InvitationService) Accept(invitationID, actingUserID uint) (*AcceptResult, error) {
	invitation, err := s.getOwned(invitationID, actingUserID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitationID, models.InvitationPending).
			Update("status", models.InvitationAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewConflict("invitation has already been resolved")
		}

		member := models.ProjectMember{ProjectID: invitation.ProjectID, UserID: actingUserID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	AuditInfo("invitation", "accept", "invitation accepted", &actingUserID, "")

	invitation.Status = models.InvitationAccepted
	project, err := s.projects.GetByID(invitation.ProjectID)
	if err != nil {
		logger.Warnf("[Invitation] Project reload after accept failed: %v", err)
	}

	return &AcceptResult{Invitation: invitation, Project: project}, nil
}

// Reject transitions a pending invitation to rejected. No membership change.
func (s *InvitationService) Reject(invitationID, actingUserID uint) (*models.Invitation, error) {
	invitation, err := s.getOwned(invitationID, actingUserID)
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", invitationID, models.InvitationPending).
		Update("status", models.InvitationRejected)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, response.NewConflict("invitation has already been resolved")
	}

	AuditInfo("invitation", "reject", "invitation rejected", &actingUserID, "")

	invitation.Status = models.InvitationRejected
	return invitation, nil
}

// ListReceived returns the user's pending invitations.
func (s *InvitationService) ListReceived(userID uint) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.Preload("Project").Preload("Sender").
		Where("recipient_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// ListForProject returns a project's invitations, optionally filtered by status.
// The caller must be an owner or member.
func (s *InvitationService) ListForProject(projectID, actingUserID uint, status string) ([]models.Invitation, error) {
	allowed, err := s.projects.IsOwnerOrMember(projectID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, response.NewForbidden("only project members can list invitations")
	}

	query := s.db.Preload("Recipient").Preload("Sender").Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var invitations []models.Invitation
	if err := query.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// getOwned loads an invitation and checks it belongs to the acting user.
func (s *InvitationService) getOwned(invitationID, actingUserID uint) (*models.Invitation, error) {
	var invitation models.Invitation
	err := s.db.First(&invitation, invitationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("invitation not found")
	}
	if err != nil {
		return nil, err
	}
	if invitation.RecipientID != actingUserID {
		return nil, response.NewForbidden("this invitation is not addressed to you")
	}
	return &invitation, nil
}

// isUniqueViolation detects a storage-level uniqueness conflict across the
// supported drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
