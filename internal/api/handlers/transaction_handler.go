package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/transaction"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	TransactionHandler interface {
		Relay(c *fiber.Ctx) error
		ListTransactions(c *fiber.Ctx) error
		GetTransaction(c *fiber.Ctx) error
		Abandon(c *fiber.Ctx) error
		ListChains(c *fiber.Ctx) error
		SwitchChain(c *fiber.Ctx) error
	}

	transactionHandler struct {
		transactionService transaction.TransactionService
		validator          *validator.Validate
	}
)

func NewTransactionHandler(transactionService transaction.TransactionService, validator *validator.Validate) TransactionHandler {
	return &transactionHandler{
		transactionService: transactionService,
		validator:          validator,
	}
}

func (h *transactionHandler) Relay(c *fiber.Ctx) error {
	req := new(domain.RelayTransactionRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRelayTransaction, err)
	}

	tx, err := h.transactionService.Relay(c.Context(), *req, middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedRelayTransaction, err)
	}
	return presenters.SuccessResponse(c, tx, fiber.StatusAccepted, domain.MessageSuccessRelayTransaction)
}

func (h *transactionHandler) ListTransactions(c *fiber.Ctx) error {
	page, limit := pagination(c)

	txs, count, err := h.transactionService.ListTransactions(c.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetTransactions, err)
	}
	return presenters.SuccessResponse(c, paginated("transactions", txs, page, limit, count), fiber.StatusOK, domain.MessageSuccessGetTransactions)
}

func (h *transactionHandler) GetTransaction(c *fiber.Ctx) error {
	tx, err := h.transactionService.GetTransaction(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetTransaction, err)
	}
	return presenters.SuccessResponse(c, tx, fiber.StatusOK, domain.MessageSuccessGetTransaction)
}

func (h *transactionHandler) Abandon(c *fiber.Ctx) error {
	tx, err := h.transactionService.Abandon(c.Context(), c.Params("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedAbandonTransaction, err)
	}
	return presenters.SuccessResponse(c, tx, fiber.StatusOK, domain.MessageSuccessAbandonTransaction)
}

func (h *transactionHandler) ListChains(c *fiber.Ctx) error {
	return presenters.SuccessResponse(c, fiber.Map{"chains": h.transactionService.ListChains()}, fiber.StatusOK, domain.MessageSuccessGetChain)
}

func (h *transactionHandler) SwitchChain(c *fiber.Ctx) error {
	req := new(domain.SwitchChainRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSwitchChain, err)
	}

	chain, err := h.transactionService.SwitchChain(c.Context(), *req)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedSwitchChain, err)
	}
	return presenters.SuccessResponse(c, chain, fiber.StatusOK, domain.MessageSuccessSwitchChain)
}
