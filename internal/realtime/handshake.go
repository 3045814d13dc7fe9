package realtime

import (
	"errors"
	"strconv"
)

// Handshake failures, in the order the checks run. The transport layer maps
// these to HTTP statuses before the upgrade.
var (
	ErrInvalidProject  = errors.New("invalid project id")
	ErrProjectNotFound = errors.New("project not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("not a member of this project")
)

// ProjectInfo is the slice of a project the handshake needs.
type ProjectInfo struct {
	ID      uint
	Name    string
	OwnerID uint
}

// ProjectDirectory resolves projects and membership. A missing project is
// (nil, nil), not an error.
type ProjectDirectory interface {
	FindProject(projectID uint) (*ProjectInfo, error)
	IsOwnerOrMember(projectID, userID uint) (bool, error)
}

// Identity is the authenticated principal attached to a connection.
type Identity struct {
	UserID   uint
	Username string
	Email    string
}

// TokenVerifier validates a bearer token and returns the identity it carries.
// Any failure, including revocation, must return an error.
type TokenVerifier func(token string) (*Identity, error)

// Authorize runs the connection handshake. The checks are ordered so that a
// caller learns whether a project exists before credentials are examined,
// but membership is only revealed to authenticated users.
func Authorize(projectIDRaw, token string, dir ProjectDirectory, verify TokenVerifier) (*Identity, *ProjectInfo, error) {
	id, err := strconv.ParseUint(projectIDRaw, 10, 32)
	if err != nil || id == 0 {
		return nil, nil, ErrInvalidProject
	}
	projectID := uint(id)

	project, err := dir.FindProject(projectID)
	if err != nil {
		return nil, nil, err
	}
	if project == nil {
		return nil, nil, ErrProjectNotFound
	}

	if token == "" {
		return nil, nil, ErrUnauthenticated
	}

	identity, err := verify(token)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	allowed, err := dir.IsOwnerOrMember(projectID, identity.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, ErrForbidden
	}

	return identity, project, nil
}
