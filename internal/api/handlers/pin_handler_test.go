package handlers

import (
	"bytes"
	"context"
	"crimson-backend/domain"
	"crimson-backend/pkg/pinning"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPins struct {
	pinning.PinService

	pin *domain.Pin
	err error

	owner       string
	page, limit int
	filename    string
}

func (s *stubPins) PinFile(_ context.Context, file *multipart.FileHeader, owner string, _ ...string) (*domain.Pin, error) {
	s.owner = owner
	s.filename = file.Filename
	return s.pin, s.err
}

func (s *stubPins) GetPin(context.Context, string) (*domain.Pin, error) { return s.pin, s.err }

func (s *stubPins) OpenPin(context.Context, string) (*domain.Pin, io.ReadCloser, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.pin, io.NopCloser(strings.NewReader("%PDF-")), nil
}

func (s *stubPins) ListPins(_ context.Context, owner string, page, limit int) ([]*domain.Pin, int64, error) {
	s.owner, s.page, s.limit = owner, page, limit
	return []*domain.Pin{s.pin}, 250, s.err
}

func pinApp(svc pinning.PinService) *fiber.App {
	h := NewPinHandler(svc)

	app := newApp()
	app.Post("/pins", h.PinFile)
	app.Get("/pins", h.ListPins)
	app.Get("/pins/:digest", h.GetPin)
	app.Get("/pins/:digest/content", h.GetPinContent)
	return app
}

func scan() *domain.Pin {
	return &domain.Pin{Digest: "e3b0c442", Name: "scan.pdf", ContentType: "application/pdf", Size: 5, Owner: caller}
}

func TestPinFileUpload(t *testing.T) {
	svc := &stubPins{pin: scan()}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/pins", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	status, body := send(t, pinApp(svc), req)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "e3b0c442", decode[domain.Pin](t, body.Data).Digest)
	assert.Equal(t, caller, svc.owner)
	assert.Equal(t, "scan.pdf", svc.filename)

	status, body = send(t, pinApp(svc), jsonRequest("POST", "/pins", `{}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, domain.ErrFileRequired.Error(), body.Error)
}

func TestGetPinContentIsImmutable(t *testing.T) {
	res, err := pinApp(&stubPins{pin: scan()}).Test(httptest.NewRequest("GET", "/pins/e3b0c442/content", nil), -1)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `"e3b0c442"`, res.Header.Get(fiber.HeaderETag))
	assert.Contains(t, res.Header.Get(fiber.HeaderCacheControl), "immutable")
	content, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(content))

	status, _ := send(t, pinApp(&stubPins{err: domain.ErrPinNotFound}), jsonRequest("GET", "/pins/e3b0c442/content", ""))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListPinsCapsLimit(t *testing.T) {
	svc := &stubPins{pin: scan()}
	status, body := send(t, pinApp(svc), jsonRequest("GET", "/pins?page=0&limit=500", ""))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, svc.page)
	assert.Equal(t, maxPageLimit, svc.limit)

	got := decode[struct {
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"pagination"`
	}](t, body.Data)
	assert.Equal(t, int64(250), got.Pagination.Total)
	assert.Equal(t, int64(3), got.Pagination.TotalPages)
}
