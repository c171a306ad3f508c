package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/pinning"

	"github.com/gofiber/fiber/v2"
)

type (
	PinHandler interface {
		PinFile(c *fiber.Ctx) error
		GetPin(c *fiber.Ctx) error
		GetPinContent(c *fiber.Ctx) error
		ListPins(c *fiber.Ctx) error
	}

	pinHandler struct {
		pinService pinning.PinService
	}
)

func NewPinHandler(pinService pinning.PinService) PinHandler {
	return &pinHandler{
		pinService: pinService,
	}
}

func (h *pinHandler) PinFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedPinFile, domain.ErrFileRequired)
	}

	pin, err := h.pinService.PinFile(c.Context(), file, middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedPinFile, err)
	}
	return presenters.SuccessResponse(c, pin, fiber.StatusCreated, domain.MessageSuccessPinFile)
}

func (h *pinHandler) GetPin(c *fiber.Ctx) error {
	pin, err := h.pinService.GetPin(c.Context(), c.Params("digest"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetPin, err)
	}
	return presenters.SuccessResponse(c, pin, fiber.StatusOK, domain.MessageSuccessGetPin)
}

// GetPinContent serves the pinned bytes. Content never changes for a digest.
func (h *pinHandler) GetPinContent(c *fiber.Ctx) error {
	pin, body, err := h.pinService.OpenPin(c.Context(), c.Params("digest"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetPin, err)
	}
	c.Set(fiber.HeaderContentType, pin.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	c.Set(fiber.HeaderETag, `"`+pin.Digest+`"`)
	return c.SendStream(body, int(pin.Size))
}

func (h *pinHandler) ListPins(c *fiber.Ctx) error {
	page, limit := pagination(c)

	pins, count, err := h.pinService.ListPins(c.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetPins, err)
	}
	return presenters.SuccessResponse(c, paginated("pins", pins, page, limit, count), fiber.StatusOK, domain.MessageSuccessGetPins)
}
