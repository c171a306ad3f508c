package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/middleware"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const caller = "0x00000000000000000000000000000000000000aa"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

// signedIn stands in for the auth middleware.
func signedIn(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDKey, caller)
		c.Locals(middleware.RoleKey, role)
		return c.Next()
	}
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(signedIn(domain.RoleAdmin))
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var out envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
