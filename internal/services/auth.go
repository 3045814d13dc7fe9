package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/collabspace/server/internal/config"
	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/internal/utils"
	"github.com/collabspace/server/pkg/logger"
	"github.com/collabspace/server/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
	blacklist *TokenBlacklist
}

// NewAuthService creates the auth service. blacklist may be nil when no
// revocation store is configured; logout then has no server-side effect.
func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, blacklist *TokenBlacklist) *AuthService {
	return &AuthService{
		db:        db,
		jwtConfig: jwtCfg,
		blacklist: blacklist,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	err := s.db.Model(&models.User{}).
		Where("email = ? OR username = ?", email, req.Username).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("username or email already taken")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: req.Username,
		Email:    email,
		Password: hashed,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// Login authenticates by email/password and issues a JWT. Credential
// failures are collapsed into one message to avoid account probing.
func (s *AuthService) Login(req *LoginRequest, clientIP string) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		AuditWarning("auth", "login_failed", "wrong password for "+email, &user.ID, clientIP)
		return nil, response.NewUnauthorized("invalid email or password")
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Email, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Save(&user)

	AuditInfo("auth", "login", "user logged in", &user.ID, clientIP)

	return &LoginResult{
		Token:    token,
		User:     &user,
		ExpireAt: now.Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		// Invalid or expired tokens need no revocation entry.
		return nil
	}

	if s.blacklist == nil {
		logger.Warnf("[Auth] No revocation store configured, logout is client-side only")
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.Revoke(ctx, token, ttl); err != nil {
		return err
	}

	AuditInfo("auth", "logout", "token revoked", &claims.UserID, "")
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail resolves an account by exact email, used when inviting
// collaborators.
func (s *AuthService) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return response.NewNotFound("user not found")
	}

	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashed
	return s.db.Save(&user).Error
}
