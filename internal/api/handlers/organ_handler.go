package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/organ"
	"crimson-backend/pkg/transaction"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	OrganHandler interface {
		ListHospitals(c *fiber.Ctx) error
		ListRequests(c *fiber.Ctx) error
		GetDonor(c *fiber.Ctx) error
		CheckAvailability(c *fiber.Ctx) error
		RegisterHospital(c *fiber.Ctx) error
		CreateRequest(c *fiber.Ctx) error
		RegisterDonor(c *fiber.Ctx) error
		ApproveDonor(c *fiber.Ctx) error
	}

	organHandler struct {
		organService       organ.OrganService
		transactionService transaction.TransactionService
		validator          *validator.Validate
	}
)

func NewOrganHandler(organService organ.OrganService, transactionService transaction.TransactionService, validator *validator.Validate) OrganHandler {
	return &organHandler{
		organService:       organService,
		transactionService: transactionService,
		validator:          validator,
	}
}

func (h *organHandler) ListHospitals(c *fiber.Ctx) error {
	hospitals, err := h.organService.ListHospitals(c.Context())
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetHospitals, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"hospitals": hospitals}, fiber.StatusOK, domain.MessageSuccessGetHospitals)
}

func (h *organHandler) ListRequests(c *fiber.Ctx) error {
	req := new(domain.ListOrganRequestsRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetOrganRequests, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetOrganRequests, err)
	}

	requests, err := h.organService.ListRequests(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetOrganRequests, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"requests": requests}, fiber.StatusOK, domain.MessageSuccessGetOrganRequests)
}

func (h *organHandler) GetDonor(c *fiber.Ctx) error {
	donor, err := h.organService.GetDonor(c.Context(), c.Params("address"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetOrganDonor, err)
	}
	return presenters.SuccessResponse(c, donor, fiber.StatusOK, domain.MessageSuccessGetOrganDonor)
}

func (h *organHandler) CheckAvailability(c *fiber.Ctx) error {
	req := new(domain.OrganAvailabilityRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCheckAvailability, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCheckAvailability, err)
	}

	availability, err := h.organService.CheckAvailability(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedCheckAvailability, err)
	}
	return presenters.SuccessResponse(c, availability, fiber.StatusOK, domain.MessageSuccessCheckAvailability)
}

func (h *organHandler) RegisterHospital(c *fiber.Ctx) error {
	req := new(domain.RegisterHospitalRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRegisterHospital, err)
	}

	tx, err := h.organService.RegisterHospital(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedRegisterHospital, err)
	}
	return presenters.SuccessResponse(c, h.transactionService.Describe(tx), fiber.StatusAccepted, domain.MessageSuccessRegisterHospital)
}

func (h *organHandler) CreateRequest(c *fiber.Ctx) error {
	req := new(domain.CreateOrganRequestRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateOrganRequest, err)
	}

	tx, err := h.organService.CreateRequest(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedCreateOrganRequest, err)
	}
	return presenters.SuccessResponse(c, h.transactionService.Describe(tx), fiber.StatusAccepted, domain.MessageSuccessCreateOrganRequest)
}

// RegisterDonor returns the registerDonor call for the caller's wallet. The
// contract registers msg.sender, so the operator cannot send it.
func (h *organHandler) RegisterDonor(c *fiber.Ctx) error {
	req := new(domain.RegisterOrganDonorRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	// Get health records if provided
	req.RecordsFile, _ = c.FormFile("records_file")

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRegisterDonor, err)
	}

	call, err := h.organService.PrepareRegisterDonor(c.Context(), *req, middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedRegisterDonor, err)
	}
	return presenters.SuccessResponse(c, call, fiber.StatusOK, domain.MessageSuccessPrepareCall)
}

func (h *organHandler) ApproveDonor(c *fiber.Ctx) error {
	call, err := h.organService.PrepareApproveDonor(c.Context(), c.Params("address"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedApproveDonor, err)
	}
	return presenters.SuccessResponse(c, call, fiber.StatusOK, domain.MessageSuccessPrepareCall)
}
