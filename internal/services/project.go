package services

import (
	"errors"

	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=1000"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create inserts a project and makes the creator its owner and first member.
func (s *ProjectService) Create(req *CreateProjectRequest, ownerID uint) (*models.Project, error) {
	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := models.ProjectMember{ProjectID: project.ID, UserID: ownerID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	AuditInfo("project", "create", "project created: "+project.Name, &ownerID, "")
	return &project, nil
}

// List returns every project the user owns or is a member of.
func (s *ProjectService) List(userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.
		Distinct("projects.*").
		Joins("LEFT JOIN project_members pm ON pm.project_id = projects.id").
		Where("projects.owner_id = ? OR pm.user_id = ?", userID, userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	err := s.db.Preload("Owner").Preload("Members").First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("project not found")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Update modifies a project. Only the owner may update.
func (s *ProjectService) Update(id, actingUserID uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actingUserID {
		return nil, response.NewForbidden("only the project owner can update it")
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := s.db.Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// Delete soft-deletes a project. Only the owner may delete.
func (s *ProjectService) Delete(id, actingUserID uint) error {
	project, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if project.OwnerID != actingUserID {
		return response.NewForbidden("only the project owner can delete it")
	}
	if err := s.db.Delete(&models.Project{}, id).Error; err != nil {
		return err
	}

	AuditInfo("project", "delete", "project deleted: "+project.Name, &actingUserID, "")
	return nil
}

// AddMember adds a user to the project membership set. The composite primary
// key on project_members makes the add idempotent under concurrent calls.
func (s *ProjectService) AddMember(projectID, userID uint) error {
	member := models.ProjectMember{ProjectID: projectID, UserID: userID}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
}

// RemoveMember removes a member. Only the owner may remove others; any member
// may remove themselves (leave). The owner cannot leave their own project.
func (s *ProjectService) RemoveMember(projectID, targetUserID, actingUserID uint) error {
	project, err := s.GetByID(projectID)
	if err != nil {
		return err
	}
	if targetUserID == project.OwnerID {
		return response.NewBadRequest("the project owner cannot be removed")
	}
	if actingUserID != project.OwnerID && actingUserID != targetUserID {
		return response.NewForbidden("only the project owner can remove members")
	}
	err = s.db.
		Where("project_id = ? AND user_id = ?", projectID, targetUserID).
		Delete(&models.ProjectMember{}).Error
	if err != nil {
		return err
	}

	action := "remove_member"
	if actingUserID == targetUserID {
		action = "leave"
	}
	AuditInfo("project", action, "membership removed from "+project.Name, &actingUserID, "")
	return nil
}

// Members returns the users in a project's membership set.
func (s *ProjectService) Members(projectID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN project_members pm ON pm.user_id = users.id").
		Where("pm.project_id = ?", projectID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// IsOwner reports whether the user owns the project.
func (s *ProjectService) IsOwner(projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Project{}).
		Where("id = ? AND owner_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsMember reports whether the user is in the membership set.
func (s *ProjectService) IsMember(projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsOwnerOrMember is the room admission predicate.
func (s *ProjectService) IsOwnerOrMember(projectID, userID uint) (bool, error) {
	owner, err := s.IsOwner(projectID, userID)
	if err != nil || owner {
		return owner, err
	}
	return s.IsMember(projectID, userID)
}

// FindByID looks up a project without wrapping the miss in an API error.
// A missing project yields (nil, nil) so callers can distinguish not-found
// from store failure.
func (s *ProjectService) FindByID(id uint) (*models.Project, error) {
	var project models.Project
	err := s.db.First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}
