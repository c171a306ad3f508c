package middleware

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/pkg/jwt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
		AdminMiddleware() fiber.Handler
	}

	middleware struct {
		allowOrigins string
	}
)

// NewMiddleware takes the comma separated CORS origins; empty allows any.
func NewMiddleware(allowOrigins string) Middleware {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return &middleware{allowOrigins: allowOrigins}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: m.allowOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	})
}

// AuthMiddleware requires a bearer token and stores the wallet address and
// role in the request locals.
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearer(c)
		if !ok {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, domain.ErrTokenNotFound)
		}
		userID, role, err := jwtService.GetUserIDByToken(token)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
		}
		c.Locals(UserIDKey, userID)
		c.Locals(RoleKey, role)
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func (m *middleware) AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(RoleKey).(string); role != domain.RoleAdmin {
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MesaageUserNotAllowed, domain.ErrUserNotAllowed)
		}
		return c.Next()
	}
}

func bearer(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// UserID is the caller's wallet address, or "" on anonymous routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(RoleKey).(string)
	return role == domain.RoleAdmin
}
