package handlers

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/internal/utils"
	"crimson-backend/pkg/bloodcamp"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/transaction"
	"fmt"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCamps struct {
	bloodcamp.BloodCampService

	item      *domain.InventoryItem
	inventory *domain.Inventory
	err       error

	view   string
	peek   bool
	update domain.UpdateInventoryRequest
	calls  int
}

func (s *stubCamps) GetInventory(_ context.Context, id, view string) (*domain.Inventory, error) {
	s.calls++
	s.view = view
	return s.inventory, s.err
}

func (s *stubCamps) GetInventoryItem(_ context.Context, _, _ string, peek bool) (*domain.InventoryItem, error) {
	s.calls++
	s.peek = peek
	return s.item, s.err
}

func (s *stubCamps) UpdateInventory(_ context.Context, _ string, req domain.UpdateInventoryRequest) (*ledger.Tx, error) {
	s.calls++
	s.update = req
	return nil, s.err
}

// stubTransactions describes every submitted write as the same pending row.
type stubTransactions struct {
	transaction.TransactionService

	tx  *domain.Transaction
	err error

	id     string
	caller string
	admin  bool
}

func (s *stubTransactions) Describe(*ledger.Tx) *domain.Transaction { return s.tx }

func (s *stubTransactions) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.id = id
	return s.tx, s.err
}

func (s *stubTransactions) Abandon(_ context.Context, id, caller string, admin bool) (*domain.Transaction, error) {
	s.id, s.caller, s.admin = id, caller, admin
	return s.tx, s.err
}

func pendingTx(function string) *stubTransactions {
	return &stubTransactions{tx: &domain.Transaction{ID: "6f1c2a7e-5b1d-4a53-9d0e-0c0b8f6d1a11", Function: function, Stage: "pending"}}
}

func campApp(svc bloodcamp.BloodCampService, txs transaction.TransactionService) *fiber.App {
	utils.InitValidator()
	h := NewBloodCampHandler(svc, txs, utils.Validate)

	app := newApp()
	app.Get("/camps/:id/inventory", h.GetInventory)
	app.Get("/camps/:id/inventory/:bloodType", h.GetInventoryItem)
	app.Put("/camps/:id/inventory", h.UpdateInventory)
	return app
}

func TestUpdateInventoryAnswersAccepted(t *testing.T) {
	svc := &stubCamps{}
	app := campApp(svc, pendingTx("updateInventory"))

	status, body := send(t, app, jsonRequest("PUT", "/camps/5/inventory", `{"blood_type":"O+","quantity":40}`))
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.True(t, body.Status)
	assert.Equal(t, domain.MessageSuccessUpdateInventory, body.Message)
	tx := decode[domain.Transaction](t, body.Data)
	assert.Equal(t, "pending", tx.Stage)
	assert.Equal(t, "updateInventory", tx.Function)
	assert.Equal(t, domain.UpdateInventoryRequest{BloodType: "O+", Quantity: 40}, svc.update)
}

func TestUpdateInventoryFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing blood type", `{"quantity":40}`, nil, fiber.StatusBadRequest},
		{"broken json", `{"blood_type":`, nil, fiber.StatusBadRequest},
		{"no operator key", `{"blood_type":"O+","quantity":1}`, fmt.Errorf("update inventory: %w", ledger.ErrNoSigner), fiber.StatusServiceUnavailable},
		{"not the owner", `{"blood_type":"O+","quantity":1}`, domain.ErrCampNotOwner, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCamps{err: tt.err}
			status, body := send(t, campApp(svc, pendingTx("updateInventory")), jsonRequest("PUT", "/camps/5/inventory", tt.body))
			assert.Equal(t, tt.want, status)
			assert.False(t, body.Status)
			assert.Equal(t, tt.err != nil, svc.calls == 1)
		})
	}
}

func TestGetInventoryItemPeek(t *testing.T) {
	tests := []struct {
		name string
		item domain.InventoryItem
		want int
	}{
		{"ready", domain.InventoryItem{BloodType: "O+", Status: "ready", Quantity: "40", Level: "low"}, fiber.StatusOK},
		{"never read", domain.InventoryItem{BloodType: "O+", Status: "unknown", Level: "unknown"}, fiber.StatusAccepted},
		{"in flight", domain.InventoryItem{BloodType: "O+", Status: "loading", Level: "unknown"}, fiber.StatusAccepted},
		{"last read failed", domain.InventoryItem{BloodType: "O+", Status: "error", Level: "unknown", Error: "rpc timeout"}, fiber.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			svc := &stubCamps{item: &item}
			status, body := send(t, campApp(svc, nil), jsonRequest("GET", "/camps/5/inventory/O+?peek=true", ""))
			assert.Equal(t, tt.want, status)
			assert.True(t, svc.peek)

			switch tt.want {
			case fiber.StatusAccepted:
				assert.Equal(t, domain.MessageInventoryStillLoading, body.Message)
				got := decode[domain.InventoryItem](t, body.Data)
				assert.Equal(t, tt.item.Status, got.Status)
				assert.NotEqual(t, "empty", got.Level)
			case fiber.StatusBadGateway:
				assert.False(t, body.Status)
				assert.Equal(t, "ledger unavailable: rpc timeout", body.Error)
			}
		})
	}
}

func TestGetInventoryItemWithoutPeekReadsThrough(t *testing.T) {
	svc := &stubCamps{item: &domain.InventoryItem{BloodType: "A-", Status: "ready", Quantity: "0", Level: "empty"}}
	status, body := send(t, campApp(svc, nil), jsonRequest("GET", "/camps/5/inventory/A-", ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.False(t, svc.peek)
	assert.Equal(t, "empty", decode[domain.InventoryItem](t, body.Data).Level)

	svc = &stubCamps{err: domain.ErrInvalidBloodType}
	status, _ = send(t, campApp(svc, nil), jsonRequest("GET", "/camps/5/inventory/Z", ""))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetInventoryScopesViewToClient(t *testing.T) {
	svc := &stubCamps{inventory: &domain.Inventory{CampID: "5"}}
	app := campApp(svc, nil)

	status, _ := send(t, app, jsonRequest("GET", "/camps/5/inventory", ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, svc.view)

	req := jsonRequest("GET", "/camps/5/inventory", "")
	req.Header.Set("X-View-ID", "tab-1")
	status, _ = send(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, strings.HasSuffix(svc.view, "/tab-1"))
	assert.NotEqual(t, "/tab-1", svc.view)
}

func TestGetInventorySupersededIsConflict(t *testing.T) {
	svc := &stubCamps{err: ledger.ErrSuperseded}
	req := jsonRequest("GET", "/camps/5/inventory", "")
	req.Header.Set("X-View-ID", "tab-1")

	status, body := send(t, campApp(svc, nil), req)
	require.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, domain.MessageFailedGetInventory, body.Message)
	assert.Equal(t, ledger.ErrSuperseded.Error(), body.Error)
}
