package handlers

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/internal/utils"
	"crimson-backend/pkg/assistant"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedAssistant struct {
	assistant.AssistantService
	chunks []string
	err    error
}

func (a *scriptedAssistant) Chat(_ context.Context, _ domain.ChatRequest, emit func(string) error) error {
	for _, chunk := range a.chunks {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return a.err
}

func postChat(t *testing.T, svc assistant.AssistantService, body string) (int, string) {
	t.Helper()
	utils.InitValidator()
	h := NewAssistantHandler(svc, utils.Validate, zap.NewNop())

	app := fiber.New()
	app.Post("/chat", h.Chat)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(out)
}

func TestChatStreamsEvents(t *testing.T) {
	status, body := postChat(t, &scriptedAssistant{chunks: []string{"You can ", "donate."}},
		`{"messages":[{"role":"user","content":"Can I donate?"}]}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t,
		"data: {\"text\":\"You can \"}\n\n"+
			"data: {\"text\":\"donate.\"}\n\n"+
			"event: done\ndata: {}\n\n",
		body)
}

func TestChatStreamsErrorEvent(t *testing.T) {
	status, body := postChat(t, &scriptedAssistant{chunks: []string{"Hi"}, err: domain.ErrAssistantUnavailable},
		`{"messages":[{"role":"user","content":"hello"}]}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, strings.HasPrefix(body, "data: {\"text\":\"Hi\"}\n\n"))
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, domain.ErrAssistantUnavailable.Error())
	assert.NotContains(t, body, "event: done")
}

func TestChatRejectsBeforeStreaming(t *testing.T) {
	svc := &scriptedAssistant{err: errors.New("must not be called")}

	status, body := postChat(t, svc, `{"messages":[{"role":"assistant","content":"Hello"}]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, domain.ErrEmptyConversation.Error())

	status, _ = postChat(t, svc, `{"messages":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
