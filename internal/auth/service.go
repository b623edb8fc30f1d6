// internal/auth/service.go
// Service layer contains all business logic for authentication

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xperia/xperia-backend/internal/common/utils"
)

const tokenIssuer = "xperia-backend"

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrAccountDisabled    = errors.New("account disabled")
)

// Service interface
type Service interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error)

	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	Logout(ctx context.Context, refreshToken string) error

	GetUserByID(ctx context.Context, userID int64) (*User, error)
}

// Config holds service configuration
type Config struct {
	JWTSecret           string
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	BCryptCost          int
	LoginAttemptsMax    int
	LoginAttemptsWindow time.Duration
}

type service struct {
	repo   Repository
	redis  *redis.Client
	config *Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new auth service. redis may be nil, in which case
// failed logins are not throttled.
func NewService(repo Repository, redis *redis.Client, config *Config, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		redis:  redis,
		config: config,
		logger: logger.With(zap.String("component", "auth")),
		now:    time.Now,
	}
}

// Signup creates a new account and signs the user in
func (s *service) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if taken, err := s.repo.IsEmailTaken(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))

	return s.createAuthSession(ctx, user)
}

// Signin verifies the password and issues a new token pair
func (s *service) Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if s.tooManyAttempts(ctx, email) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailedAttempt(ctx, email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedAttempt(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	s.clearFailedAttempts(ctx, email)

	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return s.createAuthSession(ctx, user)
}

// RefreshToken rotates the session behind a refresh token
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	session, err := s.sessionFromRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeSession(ctx, session.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to revoke session: %w", err)
	}

	return s.createAuthSession(ctx, user)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	return utils.ValidateJWT(token, s.config.JWTSecret)
}

// Logout revokes the session behind a refresh token
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionFromRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.repo.RevokeSession(ctx, session.ID, s.now().UTC())
}

func (s *service) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// Helper functions

func (s *service) sessionFromRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := utils.ValidateJWT(refreshToken, s.config.JWTSecret)
	if err != nil || claims.Type != utils.TokenTypeRefresh || claims.TokenID == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.repo.GetSession(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}

	if session.RevokedAt != nil || s.now().After(session.ExpiresAt) || session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	return session, nil
}

func (s *service) createAuthSession(ctx context.Context, user *User) (*AuthResponse, error) {
	now := s.now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
	}

	accessToken, err := s.generateToken(user, session.ID, utils.TokenTypeAccess, now, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateToken(user, session.ID, utils.TokenTypeRefresh, now, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.config.AccessTokenExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (s *service) generateToken(user *User, sessionID, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := &utils.JWTClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		TokenID:   sessionID,
		Type:      tokenType,
		ExpiresAt: now.Add(ttl).Unix(),
		IssuedAt:  now.Unix(),
		NotBefore: now.Unix(),
		Issuer:    tokenIssuer,
	}

	return utils.GenerateJWT(claims, s.config.JWTSecret)
}

func failedAttemptsKey(identifier string) string {
	return fmt.Sprintf("failed:%s", identifier)
}

func (s *service) tooManyAttempts(ctx context.Context, identifier string) bool {
	if s.redis == nil {
		return false
	}
	count, err := s.redis.Get(ctx, failedAttemptsKey(identifier)).Int()
	if err != nil {
		return false
	}
	return count >= s.config.LoginAttemptsMax
}

func (s *service) recordFailedAttempt(ctx context.Context, identifier string) {
	if s.redis == nil {
		return
	}
	key := failedAttemptsKey(identifier)
	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.LoginAttemptsWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("failed to record login attempt", zap.Error(err))
	}
}

func (s *service) clearFailedAttempts(ctx context.Context, identifier string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, failedAttemptsKey(identifier))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
