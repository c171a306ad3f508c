package handlers

import (
	"bufio"
	"context"
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/pkg/assistant"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const chatTimeout = 2 * time.Minute

type (
	AssistantHandler interface {
		Chat(c *fiber.Ctx) error
		CheckEligibility(c *fiber.Ctx) error
	}

	assistantHandler struct {
		assistantService assistant.AssistantService
		validator        *validator.Validate
		log              *zap.Logger
	}
)

func NewAssistantHandler(assistantService assistant.AssistantService, validator *validator.Validate, log *zap.Logger) AssistantHandler {
	return &assistantHandler{
		assistantService: assistantService,
		validator:        validator,
		log:              log,
	}
}

// Chat streams the reply as server-sent events: one "data" event per chunk
// carrying {"text": ...}, then "done", or "error" if the model fails midway.
func (h *assistantHandler) Chat(c *fiber.Ctx) error {
	req := new(domain.ChatRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedChat, err)
	}
	if req.Messages[len(req.Messages)-1].Role != domain.ChatRoleUser {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedChat, domain.ErrEmptyConversation)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	chat := *req
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		err := h.assistantService.Chat(ctx, chat, func(chunk string) error {
			if err := writeEvent(w, "", fiber.Map{"text": chunk}); err != nil {
				return err
			}
			// A failed flush means the client went away.
			return w.Flush()
		})
		if err != nil {
			h.log.Warn("chat ended with error", zap.Error(err))
			_ = writeEvent(w, "error", fiber.Map{"message": domain.MessageFailedChat, "error": err.Error()})
		} else {
			_ = writeEvent(w, "done", fiber.Map{})
		}
		_ = w.Flush()
	}))
	return nil
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func (h *assistantHandler) CheckEligibility(c *fiber.Ctx) error {
	req := new(domain.EligibilityRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCheckEligibility, err)
	}

	result := h.assistantService.CheckEligibility(*req)
	return presenters.SuccessResponse(c, result, fiber.StatusOK, domain.MessageSuccessCheckEligibility)
}
