package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/caching"
	"healthcrm/internal/common"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the result of a successful login.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal *auth.Principal `json:"-"`
}

type UserView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Roles []string  `json:"roles"`
}

// AuthService handles login, logout and user listing for settings
type AuthService interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, p *auth.Principal) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserView, error)
	Register(ctx context.Context, email, name, password string, roles []string) (*models.User, error)
}

type authService struct {
	users  repositories.UserRepository
	tokens *auth.TokenManager
	store  caching.Store
	log    *zap.Logger
}

func NewAuthService(users repositories.UserRepository, tokens *auth.TokenManager, store caching.Store, log *zap.Logger) AuthService {
	return &authService{users: users, tokens: tokens, store: store, log: log}
}

func revokedKey(sessionID string) string {
	return "revoked:" + sessionID
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("email", email))
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}

	roles, unknown := auth.ParseRoles(user.Roles)
	if len(unknown) > 0 {
		s.log.Warn("user has unknown roles", zap.Stringer("user_id", user.ID), zap.Strings("roles", unknown))
	}
	token, claims, err := s.tokens.Issue(user.ID, user.Name, user.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	p, err := auth.PrincipalFromClaims(claims)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: p.ExpiresAt, Principal: p}, nil
}

// Logout blacklists the session's token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil || p.SessionID == "" {
		return nil
	}
	ttl := time.Until(p.ExpiresAt)
	if p.ExpiresAt.IsZero() {
		ttl = s.tokens.TTL()
	}
	if ttl <= 0 {
		return nil
	}
	return s.store.Set(ctx, revokedKey(p.SessionID), []byte("1"), ttl)
}

func (s *authService) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	_, err := s.store.Get(ctx, revokedKey(sessionID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, caching.ErrMiss):
		return false, nil
	default:
		return false, err
	}
}

func (s *authService) ListUsers(ctx context.Context, limit, offset int) ([]UserView, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{ID: u.ID, Email: u.Email, Name: u.Name, Roles: u.Roles})
	}
	return out, nil
}

// Register creates a user with a bcrypt-hashed password. Used by the seed.
func (s *authService) Register(ctx context.Context, email, name, password string, roles []string) (*models.User, error) {
	if err := errors.Join(
		common.ValidateRequiredString(email, "email"),
		common.ValidateRequiredString(name, "name"),
		common.ValidateRequiredString(password, "password"),
	); err != nil {
		return nil, err
	}
	set, unknown := auth.ParseRoles(roles)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown roles %v", common.ErrValidation, unknown)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        set.Names(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
