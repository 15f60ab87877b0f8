package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/auth"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// AuthService handles authentication and account administration
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
	CreateUser(ctx context.Context, actor models.Actor, req *dto.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context, page helpers.Page) ([]*models.User, int64, error)
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	List(ctx context.Context, p helpers.Page) ([]*models.User, int64, error)
}

type tokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

type tokenIssuer interface {
	GenerateTokenPair(user *models.User) (*auth.TokenPair, error)
}

type authServiceImpl struct {
	users  userStore
	tokens tokenStore
	issuer tokenIssuer
	tx     Transactor
	audit  auditRecorder
	now    Clock
	logger zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users userStore,
	tokens tokenStore,
	issuer tokenIssuer,
	tx Transactor,
	audit auditRecorder,
	logger zerolog.Logger,
) AuthService {
	return &authServiceImpl{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		tx:     tx,
		audit:  audit,
		now:    utcNow,
		logger: logger,
	}
}

// Login authenticates a user
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Warn().Int64("userID", user.ID).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not stamp last login")
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: *token, User: dto.FromUser(user)}, nil
}

// RefreshToken exchanges a refresh token for a new pair, revoking the old one
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	var resp *dto.TokenResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.tokens.GetByToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if stored.Revoked {
			return apperrors.ErrTokenRevoked
		}
		if !stored.IsUsable(s.now()) {
			return apperrors.ErrTokenExpired
		}

		user, err := s.users.GetByID(ctx, stored.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperrors.ErrAccountDisabled
		}

		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke old token: %w", err)
		}
		resp, err = s.issue(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

// Me returns the profile of the current user
func (s *authServiceImpl) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// CreateUser opens a login account. Only administrators may do so.
func (s *authServiceImpl) CreateUser(ctx context.Context, actor models.Actor, req *dto.CreateUserRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.NewForbiddenError("only administrators can create accounts")
	}

	email := validation.NormalizeEmail(req.Email)
	if !validation.IsValidEmail(email) {
		return nil, apperrors.NewValidationError("email is not valid")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters")
	}
	role, err := models.ParseRoleType(string(req.RoleType))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if !validation.IsValidName(req.FirstName) || !validation.IsValidName(req.LastName) {
		return nil, apperrors.NewValidationError("first and last name are required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		RoleType:  role,
		IsActive:  true,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityUser, user.ID, map[string]interface{}{
			"email": user.Email,
			"role":  user.RoleType,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(role)).Msg("User account created")
	return user, nil
}

// ListUsers returns a page of accounts
func (s *authServiceImpl) ListUsers(ctx context.Context, page helpers.Page) ([]*models.User, int64, error) {
	return s.users.List(ctx, page)
}

// issue generates a token pair and persists the refresh half
func (s *authServiceImpl) issue(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.issuer.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokens.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             pair.ExpiresIn,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: pair.RefreshExpiresIn,
	}, nil
}
