package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/bloodcamp"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/transaction"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	BloodCampHandler interface {
		ListCamps(c *fiber.Ctx) error
		OwnedCamps(c *fiber.Ctx) error
		GetCamp(c *fiber.Ctx) error
		GetInventory(c *fiber.Ctx) error
		GetInventoryItem(c *fiber.Ctx) error
		GetDonors(c *fiber.Ctx) error
		GetRegistrants(c *fiber.Ctx) error
		CreateCamp(c *fiber.Ctx) error
		UpdateInventory(c *fiber.Ctx) error
		AddDonor(c *fiber.Ctx) error
		AddRegistrant(c *fiber.Ctx) error
		IssueNFT(c *fiber.Ctx) error
	}

	bloodCampHandler struct {
		bloodCampService   bloodcamp.BloodCampService
		transactionService transaction.TransactionService
		validator          *validator.Validate
	}
)

func NewBloodCampHandler(bloodCampService bloodcamp.BloodCampService, transactionService transaction.TransactionService, validator *validator.Validate) BloodCampHandler {
	return &bloodCampHandler{
		bloodCampService:   bloodCampService,
		transactionService: transactionService,
		validator:          validator,
	}
}

func (h *bloodCampHandler) ListCamps(c *fiber.Ctx) error {
	req := new(domain.ListCampsRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCamps, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCamps, domain.ErrInvalidCoordinates)
	}

	camps, err := h.bloodCampService.ListCamps(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetCamps, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"camps": camps}, fiber.StatusOK, domain.MessageSuccessGetCamps)
}

func (h *bloodCampHandler) OwnedCamps(c *fiber.Ctx) error {
	camps, err := h.bloodCampService.OwnedCamps(c.Context(), middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetCamps, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"camps": camps}, fiber.StatusOK, domain.MessageSuccessGetCamps)
}

func (h *bloodCampHandler) GetCamp(c *fiber.Ctx) error {
	camp, err := h.bloodCampService.GetCamp(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetCamp, err)
	}
	return presenters.SuccessResponse(c, camp, fiber.StatusOK, domain.MessageSuccessGetCamp)
}

// GetInventory honours X-View-ID: a newer request carrying the same id from
// the same client answers 409 to the older one still in flight.
func (h *bloodCampHandler) GetInventory(c *fiber.Ctx) error {
	view := c.Get("X-View-ID")
	if view != "" {
		view = c.IP() + "/" + view
	}
	inventory, err := h.bloodCampService.GetInventory(c.Context(), c.Params("id"), view)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetInventory, err)
	}
	return presenters.SuccessResponse(c, inventory, fiber.StatusOK, domain.MessageSuccessGetInventory)
}

// GetInventoryItem with ?peek=true answers from the cache only: 202 while
// the value is still unknown or loading.
func (h *bloodCampHandler) GetInventoryItem(c *fiber.Ctx) error {
	peek := c.QueryBool("peek")
	item, err := h.bloodCampService.GetInventoryItem(c.Context(), c.Params("id"), c.Params("bloodType"), peek)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetInventory, err)
	}

	switch item.Status {
	case ledger.StatusUnknown.String(), ledger.StatusLoading.String():
		return presenters.SuccessResponse(c, item, fiber.StatusAccepted, domain.MessageInventoryStillLoading)
	case ledger.StatusError.String():
		return presenters.ErrorResponse(c, fiber.StatusBadGateway, domain.MessageFailedGetInventory, fmt.Errorf("%w: %s", domain.ErrLedgerUnavailable, item.Error))
	}
	return presenters.SuccessResponse(c, item, fiber.StatusOK, domain.MessageSuccessGetInventory)
}

func (h *bloodCampHandler) GetDonors(c *fiber.Ctx) error {
	donors, err := h.bloodCampService.GetDonors(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetDonors, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"donors": donors}, fiber.StatusOK, domain.MessageSuccessGetDonors)
}

func (h *bloodCampHandler) GetRegistrants(c *fiber.Ctx) error {
	registrants, err := h.bloodCampService.GetRegistrants(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetRegistrants, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"registrants": registrants}, fiber.StatusOK, domain.MessageSuccessGetRegistrants)
}

func (h *bloodCampHandler) CreateCamp(c *fiber.Ctx) error {
	req := new(domain.CreateCampRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateCamp, err)
	}

	tx, err := h.bloodCampService.CreateCamp(c.Context(), *req)
	return h.submitted(c, tx, err, domain.MessageSuccessCreateCamp, domain.MessageFailedCreateCamp)
}

func (h *bloodCampHandler) UpdateInventory(c *fiber.Ctx) error {
	req := new(domain.UpdateInventoryRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateInventory, err)
	}

	tx, err := h.bloodCampService.UpdateInventory(c.Context(), c.Params("id"), *req)
	return h.submitted(c, tx, err, domain.MessageSuccessUpdateInventory, domain.MessageFailedUpdateInventory)
}

func (h *bloodCampHandler) AddDonor(c *fiber.Ctx) error {
	req := new(domain.CampUserRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddDonor, err)
	}

	tx, err := h.bloodCampService.AddDonor(c.Context(), c.Params("id"), *req)
	return h.submitted(c, tx, err, domain.MessageSuccessAddDonor, domain.MessageFailedAddDonor)
}

func (h *bloodCampHandler) AddRegistrant(c *fiber.Ctx) error {
	req := new(domain.CampUserRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddRegistrant, err)
	}

	tx, err := h.bloodCampService.AddRegistrant(c.Context(), c.Params("id"), *req)
	return h.submitted(c, tx, err, domain.MessageSuccessAddRegistrant, domain.MessageFailedAddRegistrant)
}

func (h *bloodCampHandler) IssueNFT(c *fiber.Ctx) error {
	req := new(domain.IssueNFTRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	// Get nft image if provided
	req.Image, _ = c.FormFile("image")

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedIssueNFT, err)
	}

	tx, err := h.bloodCampService.IssueNFT(c.Context(), c.Params("id"), *req, middleware.UserID(c))
	return h.submitted(c, tx, err, domain.MessageSuccessIssueNFT, domain.MessageFailedIssueNFT)
}

// submitted answers 202 with the tracked transaction; its progress is
// polled at /transactions/:id.
func (h *bloodCampHandler) submitted(c *fiber.Ctx, tx *ledger.Tx, err error, success, failed string) error {
	if err != nil {
		return presenters.Fail(c, failed, err)
	}
	return presenters.SuccessResponse(c, h.transactionService.Describe(tx), fiber.StatusAccepted, success)
}
