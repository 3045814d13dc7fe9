package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collabspace/server/internal/middleware"
	"github.com/collabspace/server/internal/services"
	"github.com/collabspace/server/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create creates a project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// List returns the caller's projects (owned and joined)
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// Get returns a single project with owner and members
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	allowed, err := h.projectService.IsOwnerOrMember(projectID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Forbidden(c, "you are not a member of this project")
		return
	}

	project, err := h.projectService.GetByID(projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Update modifies a project (owner only)
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete removes a project (owner only)
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(projectID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project deleted"})
}

// Members lists a project's members
// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	allowed, err := h.projectService.IsOwnerOrMember(projectID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Forbidden(c, "you are not a member of this project")
		return
	}

	members, err := h.projectService.Members(projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// RemoveMember removes a member from a project
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(projectID, targetID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "member removed"})
}

// Leave removes the caller from a project they are a member of
// POST /api/projects/:id/leave
func (h *ProjectHandler) Leave(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.projectService.RemoveMember(projectID, userID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "left project"})
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
