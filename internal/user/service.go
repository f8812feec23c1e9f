package user

import (
	"context"
	"errors"
	"strings"

	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidPhone       = errors.New("malformed phone number")
)

type Service interface {
	Register(ctx context.Context, email, password, fullName string) (string, Profile, error)
	Login(ctx context.Context, email, password string) (string, Profile, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) error
	ListUsers(ctx context.Context) ([]AdminUser, error)
	ChangeRole(ctx context.Context, userID, role string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, email, password, fullName string) (string, Profile, error) {
	log := logger.FromCtx(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", Profile{}, errors.New("invalid email")
	}
	if len(password) < 8 {
		return "", Profile{}, errors.New("password must be at least 8 characters")
	}

	hashed, err := HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", Profile{}, err
	}

	p, err := s.repo.Create(ctx, email, hashed, fullName)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			log.Error("failed to create profile", zap.String("email", email), zap.Error(err))
		}
		return "", Profile{}, err
	}

	token, err := GenerateJWT(p.ID, string(RoleClient), email)
	if err != nil {
		log.Error("failed to generate jwt", zap.String("user_id", p.ID), zap.Error(err))
		return "", Profile{}, err
	}

	log.Info("register completed", zap.String("user_id", p.ID), zap.String("email", email))
	return token, p, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, Profile, error) {
	log := logger.FromCtx(ctx)

	p, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", Profile{}, ErrInvalidCredentials
	}

	if !CheckPasswordHash(password, p.PasswordHash) {
		return "", Profile{}, ErrInvalidCredentials
	}

	// Role membership lives in user_roles, resolved at login and carried in
	// the token for the session's lifetime.
	role, err := s.repo.GetRole(ctx, p.ID)
	if err != nil {
		log.Error("failed to resolve role", zap.String("user_id", p.ID), zap.Error(err))
		return "", Profile{}, err
	}

	token, err := GenerateJWT(p.ID, role, p.Email)
	return token, p, err
}

func (s *service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, params UpdateProfileParams) error {
	if strings.TrimSpace(params.FullName) == "" {
		return errors.New("full name is required")
	}
	if params.Phone != nil && !utils.ValidPhone(*params.Phone) {
		return ErrInvalidPhone
	}
	return s.repo.UpdateProfile(ctx, params)
}

func (s *service) ListUsers(ctx context.Context) ([]AdminUser, error) {
	return s.repo.ListUsers(ctx)
}

func (s *service) ChangeRole(ctx context.Context, userID, role string) error {
	if !ValidRole(role) {
		return ErrInvalidRole
	}
	return s.repo.ReplaceRole(ctx, userID, role)
}
