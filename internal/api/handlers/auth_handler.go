package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/pkg/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	AuthHandler interface {
		Nonce(c *fiber.Ctx) error
		Login(c *fiber.Ctx) error
	}

	authHandler struct {
		authService auth.AuthService
		validator   *validator.Validate
	}
)

func NewAuthHandler(authService auth.AuthService, validator *validator.Validate) AuthHandler {
	return &authHandler{
		authService: authService,
		validator:   validator,
	}
}

func (h *authHandler) Nonce(c *fiber.Ctx) error {
	req := new(domain.NonceRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedIssueNonce, err)
	}

	res, err := h.authService.IssueNonce(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedIssueNonce, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessIssueNonce)
}

func (h *authHandler) Login(c *fiber.Ctx) error {
	req := new(domain.LoginRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedLogin, err)
	}

	res, err := h.authService.Login(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedLogin, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessLogin)
}
