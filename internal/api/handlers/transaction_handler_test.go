package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/utils"
	"crimson-backend/pkg/transaction"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func transactionApp(svc transaction.TransactionService, role string) *fiber.App {
	utils.InitValidator()
	h := NewTransactionHandler(svc, utils.Validate)

	app := fiber.New()
	app.Use(signedIn(role))
	app.Get("/transactions/:id", h.GetTransaction)
	app.Post("/transactions/:id/abandon", h.Abandon)
	return app
}

func TestGetTransactionShowsOutcome(t *testing.T) {
	const hash = "0x9c8f6a3c2b1e0d4f5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b"
	svc := &stubTransactions{tx: &domain.Transaction{
		ID:        "6f1c2a7e-5b1d-4a53-9d0e-0c0b8f6d1a11",
		Function:  "issueNFT",
		Hash:      hash,
		Stage:     "success",
		TxOutcome: domain.TxOutcome{CampID: "5", TokenID: "12"},
	}}

	status, body := send(t, transactionApp(svc, domain.RoleUser), jsonRequest("GET", "/transactions/"+hash, ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, hash, svc.id)

	got := decode[map[string]any](t, body.Data)
	assert.Equal(t, "5", got["camp_id"])
	assert.Equal(t, "12", got["token_id"])
	assert.NotContains(t, got, "request_id")
}

func TestGetTransactionFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed id", domain.ErrInvalidTransactionID, fiber.StatusBadRequest},
		{"unknown id", domain.ErrTransactionNotFound, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := send(t, transactionApp(&stubTransactions{err: tt.err}, domain.RoleUser), jsonRequest("GET", "/transactions/nope", ""))
			assert.Equal(t, tt.want, status)
			assert.Equal(t, domain.MessageFailedGetTransaction, body.Message)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestAbandonPassesCaller(t *testing.T) {
	svc := pendingTx("addDonor")
	status, _ := send(t, transactionApp(svc, domain.RoleUser), jsonRequest("POST", "/transactions/abc/abandon", ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "abc", svc.id)
	assert.Equal(t, caller, svc.caller)
	assert.False(t, svc.admin)

	svc = &stubTransactions{err: domain.ErrTransactionNotTracked}
	status, _ = send(t, transactionApp(svc, domain.RoleAdmin), jsonRequest("POST", "/transactions/abc/abandon", ""))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.True(t, svc.admin)

	svc = &stubTransactions{err: domain.ErrTransactionNotSender}
	status, _ = send(t, transactionApp(svc, domain.RoleUser), jsonRequest("POST", "/transactions/abc/abandon", ""))
	assert.Equal(t, fiber.StatusForbidden, status)
}
