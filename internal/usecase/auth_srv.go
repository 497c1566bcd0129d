package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/dto/response"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	Me(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
}

type authService struct {
	repo     *repository.Repository
	config   utils.JWTConfig
	denyList TokenDenyList
	clock    Clock
	log      *zap.Logger
}

func NewAuthService(repo *repository.Repository, config utils.JWTConfig, deps Dependencies, log *zap.Logger) AuthService {
	if config.ExpiryHours <= 0 {
		config.ExpiryHours = 24
	}

	return &authService{
		repo:     repo,
		config:   config,
		denyList: deps.DenyList,
		clock:    deps.Clock,
		log:      log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError("check email", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	role := entity.RoleUser
	if req.Role != "" {
		role = entity.UserRole(req.Role)
	}

	now := s.clock.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		Phone:        req.Phone,
		Role:         role,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, storeError("find user", err)
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Failed login attempt", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Logout revokes the token until it would have expired. Without a deny-list, tokens
// simply live out their expiry.
func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.denyList == nil || tokenID == "" {
		return nil
	}

	if err := s.denyList.Deny(ctx, tokenID, expiresAt.Sub(s.clock.Now())); err != nil {
		return storeError("revoke token", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError("find user", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) issue(user *entity.User) (*response.AuthResponse, error) {
	ttl := time.Duration(s.config.ExpiryHours) * time.Hour
	token, claims, err := utils.GenerateToken(s.config.Secret, user.ID, string(user.Role), ttl, s.clock.Now())
	if err != nil {
		s.log.Error("Failed to sign token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, err
	}

	resp := response.AuthToResponse(user, token, claims.ExpiresAt.Time)
	return &resp, nil
}
