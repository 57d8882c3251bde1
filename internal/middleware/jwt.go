package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrWrongTokenType = errors.New("wrong token type")

type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserLookup resolves the subject of a verified token to an active user.
// Errors matching services.ErrUnauthorized reject the token; any other error
// is a lookup failure.
type UserLookup interface {
	ActiveUser(ctx context.Context, id string) (*models.User, error)
}

func GenerateTokens(userID, secret string, accessTTL time.Duration) (string, string, error) {
	now := time.Now()

	access, err := signToken(userID, secret, TokenTypeAccess, now, accessTTL)
	if err != nil {
		return "", "", err
	}

	refresh, err := signToken(userID, secret, TokenTypeRefresh, now, refreshTokenTTL)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func signToken(userID, secret, typ string, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies tokenStr and checks that it is of the wanted type.
func ParseToken(tokenStr, secret, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func JWTProtected(secret string, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Missing authorization header",
			})
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		if tokenStr == auth {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid authorization format",
			})
		}

		claims, err := ParseToken(tokenStr, secret, TokenTypeAccess)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid or expired token",
			})
		}

		user, err := users.ActiveUser(c.UserContext(), claims.Subject)
		if errors.Is(err, services.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Could not validate credentials",
			})
		}
		if err != nil {
			slog.Error("User lookup failed", "user_id", claims.Subject, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   true,
				"message": "Internal server error",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("user", user)
		return c.Next()
	}
}

// UserID returns the id JWTProtected stored for the request.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
