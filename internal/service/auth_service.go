package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/config"
	"github.com/templatestore/license-service/internal/ierr"
	"go.uber.org/zap"
)

// Claims are the bearer token claims issued by the storefront. Subject
// carries the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	logger *zap.Logger
}

func NewAuthService(cfg *config.AuthConfig, logger *zap.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is required")
	}
	return &AuthService{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		logger: logger.Named("AuthService"),
	}, nil
}

// ValidateToken verifies an HS256 bearer token and returns the user id it
// was issued for.
func (s *AuthService) ValidateToken(rawToken string) (uuid.UUID, *Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		s.logger.Debug("Failed to verify bearer token", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return uuid.Nil, nil, fmt.Errorf("%w: %v", ierr.ErrTokenParsingFailed, err)
		}
		return uuid.Nil, nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: subject is not a user id", ierr.ErrTokenInvalidClaims)
	}

	return userID, &claims, nil
}

// IssueToken signs a bearer token for userID. It backs local tooling; the
// storefront issues production tokens.
func (s *AuthService) IssueToken(userID uuid.UUID, email string, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
