package handlers

import (
	"crimson-backend/domain"
	"crimson-backend/internal/api/presenters"
	"crimson-backend/internal/middleware"
	"crimson-backend/pkg/report"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ReportHandler interface {
		AnalyzeReport(c *fiber.Ctx) error
		GetReport(c *fiber.Ctx) error
		ListReports(c *fiber.Ctx) error
	}

	reportHandler struct {
		reportService report.ReportService
		validator     *validator.Validate
	}
)

func NewReportHandler(reportService report.ReportService, validator *validator.Validate) ReportHandler {
	return &reportHandler{
		reportService: reportService,
		validator:     validator,
	}
}

// AnalyzeReport accepts either a multipart upload ("file") or pasted text.
func (h *reportHandler) AnalyzeReport(c *fiber.Ctx) error {
	req := new(domain.AnalyzeReportRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	// Get report file if provided
	req.File, _ = c.FormFile("file")

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAnalyzeReport, err)
	}

	analysis, err := h.reportService.Analyze(c.Context(), *req, middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedAnalyzeReport, err)
	}
	return presenters.SuccessResponse(c, analysis, fiber.StatusCreated, domain.MessageSuccessAnalyzeReport)
}

func (h *reportHandler) GetReport(c *fiber.Ctx) error {
	analysis, err := h.reportService.GetAnalysis(c.Context(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetReport, err)
	}
	return presenters.SuccessResponse(c, analysis, fiber.StatusOK, domain.MessageSuccessGetReport)
}

func (h *reportHandler) ListReports(c *fiber.Ctx) error {
	page, limit := pagination(c)

	analyses, count, err := h.reportService.ListAnalyses(c.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		return presenters.Fail(c, domain.MessageFailedGetReports, err)
	}
	return presenters.SuccessResponse(c, paginated("reports", analyses, page, limit, count), fiber.StatusOK, domain.MessageSuccessGetReports)
}
