package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/config"
	"github.com/templatestore/license-service/internal/ierr"
	"go.uber.org/zap"
)

func newTestAuth(t *testing.T, issuer string) *AuthService {
	t.Helper()
	svc, err := NewAuthService(&config.AuthConfig{JWTSecret: "test-secret", Issuer: issuer, TokenTTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(&config.AuthConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestAuthService_RoundTrip(t *testing.T) {
	svc := newTestAuth(t, "templatestore")
	userID := uuid.New()

	raw, err := svc.IssueToken(userID, "buyer@example.com", time.Now())
	require.NoError(t, err)

	got, claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "buyer@example.com", claims.Email)
}

func TestAuthService_Rejects(t *testing.T) {
	svc := newTestAuth(t, "templatestore")
	userID := uuid.New()

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return raw
	}
	registered := func(sub, iss string, exp time.Time) Claims {
		return Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	expired, err := svc.IssueToken(userID, "", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"garbage", "not-a-jwt", ierr.ErrTokenParsingFailed},
		{"expired", expired, ierr.ErrInvalidToken},
		{"wrong secret", sign(registered(userID.String(), "templatestore", time.Now().Add(time.Hour)), jwt.SigningMethodHS256, []byte("other")), ierr.ErrInvalidToken},
		{"wrong algorithm", sign(registered(userID.String(), "templatestore", time.Now().Add(time.Hour)), jwt.SigningMethodHS512, []byte("test-secret")), ierr.ErrInvalidToken},
		{"wrong issuer", sign(registered(userID.String(), "elsewhere", time.Now().Add(time.Hour)), jwt.SigningMethodHS256, []byte("test-secret")), ierr.ErrInvalidToken},
		{"no expiry", sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: "templatestore"}}, jwt.SigningMethodHS256, []byte("test-secret")), ierr.ErrInvalidToken},
		{"subject not a uuid", sign(registered("user-42", "templatestore", time.Now().Add(time.Hour)), jwt.SigningMethodHS256, []byte("test-secret")), ierr.ErrTokenInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ValidateToken(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
