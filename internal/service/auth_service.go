package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etests/etests-backend/internal/config"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType  `json:"token_type"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
	SessionID string     `json:"sid"`
}

// AuthService handles credentials, token issuance and the single active
// session of each user.
type AuthService struct {
	cfg   *config.Config
	users UserStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users UserStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		users: users,
		log:   log.With().Str("component", "auth_service").Logger(),
		now:   time.Now,
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Register creates an active account. Role defaults to student.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleStudent
	}

	user := &model.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("User registered")
	return user, nil
}

// Login verifies credentials and starts a new session. Every token carrying
// an earlier session id stops validating.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	sessionID := uuid.New().String()
	if err := s.users.UpdateSessionID(ctx, user.ID, &sessionID); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("Session started")
	return s.issueTokens(user, sessionID)
}

// Refresh exchanges a refresh token for a new pair bound to the same session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, user, err := s.verify(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user, claims.SessionID)
}

// Logout clears the recorded session, invalidating all outstanding tokens.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.UpdateSessionID(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info().Str("user_id", userID.String()).Msg("Session cleared")
	return nil
}

// Authenticate resolves an access token to its claims. The role comes from
// the stored user, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	claims, user, err := s.verify(ctx, accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	claims.Role = user.Role
	return claims, nil
}

// GetUser returns the profile of an authenticated user.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) verify(ctx context.Context, tokenStr string, want TokenType) (*Claims, *model.User, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != want {
		return nil, nil, ErrTokenInvalid
	}

	user, err := s.sessionUser(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return claims, user, nil
}

// VerifySession re-checks claims that were validated earlier against the
// user's current state. Long-lived channels call it per message so that a
// later login or logout cuts them off; token expiry is not re-checked.
func (s *AuthService) VerifySession(ctx context.Context, claims *Claims) error {
	_, err := s.sessionUser(ctx, claims)
	return err
}

func (s *AuthService) sessionUser(ctx context.Context, claims *Claims) (*model.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if user.CurrentSessionID == nil || *user.CurrentSessionID != claims.SessionID {
		return nil, ErrSessionInvalidated
	}
	return user, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *AuthService) issueTokens(user *model.User, sessionID string) (*model.TokenResponse, error) {
	access, err := s.sign(user, sessionID, TokenTypeAccess, s.cfg.AccessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, sessionID, TokenTypeRefresh, s.cfg.RefreshExpiry)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) sign(user *model.User, sessionID string, typ TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
