package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUsers map[string]*models.User

func (f fakeUsers) ActiveUser(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok || !u.IsActive {
		return nil, &services.Error{Kind: services.ErrUnauthorized, Message: "Could not validate credentials"}
	}
	return u, nil
}

type brokenUsers struct{}

func (brokenUsers) ActiveUser(context.Context, string) (*models.User, error) {
	return nil, fmt.Errorf("lookup user: %w", errors.New("connection refused"))
}

func TestGenerateAndParseTokens(t *testing.T) {
	access, refresh, err := GenerateTokens("u1", testSecret, 30*time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(access, testSecret, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	claims, err = ParseToken(refresh, testSecret, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = ParseToken(refresh, testSecret, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = ParseToken(access, "other-secret", TokenTypeAccess)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := signToken("u1", testSecret, TokenTypeAccess, time.Now().Add(-time.Hour), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, testSecret, TokenTypeAccess)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTProtected(t *testing.T) {
	users := fakeUsers{
		"u1": {ID: "u1", IsActive: true},
		"u2": {ID: "u2", IsActive: false},
	}
	app := fiber.New()
	app.Get("/me", JWTProtected(testSecret, users), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	token := func(id string) string {
		access, _, err := GenerateTokens(id, testSecret, time.Minute)
		require.NoError(t, err)
		return access
	}
	_, refresh, err := GenerateTokens("u1", testSecret, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token("u1"), fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"no bearer prefix", token("u1"), fiber.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, fiber.StatusUnauthorized},
		{"inactive user", "Bearer " + token("u2"), fiber.StatusUnauthorized},
		{"unknown user", "Bearer " + token("ghost"), fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestJWTProtected_LookupFailureIsInternal(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JWTProtected(testSecret, brokenUsers{}), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	access, _, err := GenerateTokens("u1", testSecret, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
