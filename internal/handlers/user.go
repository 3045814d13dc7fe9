package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/response"
)

type UserHandler struct {
	authService *services.AuthService
}

func NewUserHandler(authService *services.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// userSummary strips an account down to the fields other users may see.
type userSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}

func summarize(u *models.User) userSummary {
	return userSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

// Lookup resolves a user by exact email, used when composing invitations
// GET /api/users/lookup?email=
func (h *UserHandler) Lookup(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.BadRequest(c, "email is required")
		return
	}

	user, err := h.authService.FindUserByEmail(email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summarize(user))
}
