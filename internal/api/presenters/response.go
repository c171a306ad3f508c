package presenters

import (
	"crimson-backend/domain"
	"crimson-backend/internal/utils/storage"
	"crimson-backend/pkg/ledger"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data any, status int, message string) error {
	return c.Status(status).JSON(Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	var detail any
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		detail = fields
	} else if err != nil {
		detail = err.Error()
	}
	return c.Status(status).JSON(Response{
		Status:  false,
		Message: message,
		Error:   detail,
	})
}

// Fail responds with the status StatusFor picks for err.
func Fail(c *fiber.Ctx, message string, err error) error {
	return ErrorResponse(c, StatusFor(err), message, err)
}

// StatusFor maps service errors to HTTP statuses. Anything unrecognised is a
// 500.
func StatusFor(err error) int {
	var verrs validator.ValidationErrors
	var revert *ledger.RevertError
	switch {
	case errors.As(err, &verrs):
		return fiber.StatusBadRequest
	case anyIs(err,
		domain.ErrTokenNotFound, domain.ErrTokenExpired, domain.ErrTokenInvalid,
		domain.ErrNonceNotFound, domain.ErrInvalidSignature, domain.ErrSignerMismatch):
		return fiber.StatusUnauthorized
	case anyIs(err, domain.ErrUserNotAllowed, domain.ErrTransactionNotSender):
		return fiber.StatusForbidden
	case anyIs(err,
		domain.ErrCampNotFound, domain.ErrHospitalNotFound, domain.ErrOrganDonorNotFound,
		domain.ErrTransactionNotFound, domain.ErrReportNotFound, domain.ErrPinNotFound):
		return fiber.StatusNotFound
	case anyIs(err,
		domain.ErrCampAlreadyExists, domain.ErrHospitalAlreadyRegistered, domain.ErrOrganDonorExists,
		domain.ErrOrganRequestExists, domain.ErrTransactionNotTracked):
		return fiber.StatusConflict
	case anyIs(err, domain.ErrCampNotOwner, domain.ErrNotNextOfKin):
		return fiber.StatusForbidden
	case anyIs(err, domain.ErrReportUnreadable, domain.ErrUnsupportedChain):
		return fiber.StatusUnprocessableEntity
	case anyIs(err, storage.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case anyIs(err, storage.ErrFileTypeNotAllowed):
		return fiber.StatusUnsupportedMediaType
	case anyIs(err,
		domain.ErrLedgerUnavailable, domain.ErrAssistantUnavailable, domain.ErrReportNotParsable):
		return fiber.StatusBadGateway
	case anyIs(err, ledger.ErrNoSigner):
		return fiber.StatusServiceUnavailable
	case anyIs(err, ledger.ErrSuperseded):
		return fiber.StatusConflict
	case errors.As(err, &revert):
		return fiber.StatusUnprocessableEntity
	case anyIs(err,
		domain.ErrParseUUID, domain.ErrInvalidCampID, domain.ErrInvalidBloodType, domain.ErrInvalidWalletAddress,
		domain.ErrInvalidCoordinates, domain.ErrNFTMetadataRequired, domain.ErrInvalidOrganID, domain.ErrOrgansRequired,
		domain.ErrInvalidRawTransaction, domain.ErrInvalidTransactionID, domain.ErrEmptyConversation, domain.ErrNoReportUploaded,
		domain.ErrFileRequired, domain.ErrInvalidDigest):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func anyIs(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
