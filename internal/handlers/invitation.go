package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/collabspace/server/internal/middleware"
	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/response"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
	authService       *services.AuthService
}

func NewInvitationHandler(invitationService *services.InvitationService, authService *services.AuthService) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		authService:       authService,
	}
}

type createInvitationRequest struct {
	ProjectID      uint   `json:"project_id" binding:"required"`
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
}

// Create sends an invitation, resolving the recipient by email
// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	recipient, err := h.authService.FindUserByEmail(req.RecipientEmail)
	if err != nil {
		response.Error(c, err)
		return
	}

	invitation, err := h.invitationService.Create(req.ProjectID, middleware.GetUserID(c), recipient.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, invitation)
}

// ListReceived returns the caller's pending invitations
// GET /api/invitations
func (h *InvitationHandler) ListReceived(c *gin.Context) {
	invitations, err := h.invitationService.ListReceived(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invitations)
}

// ListForProject returns a project's invitations
// GET /api/projects/:id/invitations?status=pending
func (h *InvitationHandler) ListForProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListForProject(projectID, middleware.GetUserID(c), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invitations)
}

// Accept accepts a pending invitation addressed to the caller
// POST /api/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	invitationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.invitationService.Accept(invitationID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reject declines a pending invitation addressed to the caller
// POST /api/invitations/:id/reject
func (h *InvitationHandler) Reject(c *gin.Context) {
	invitationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invitation, err := h.invitationService.Reject(invitationID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invitation)
}
