package controller

import (
	"errors"

	"docchat-client/internal/service"
	"docchat-client/pkg/auth"
	"docchat-client/pkg/rag/classify"
	"docchat-client/pkg/rag/document"
	"docchat-client/pkg/rag/history"
	"docchat-client/pkg/rag/transcript"

	"github.com/gofiber/fiber/v2"
)

// toHTTPError maps domain errors onto HTTP statuses. Unknown errors pass
// through and end up as 500s.
func toHTTPError(err error) error {
	var ce *classify.Error
	if errors.As(err, &ce) {
		return fiber.NewError(statusForKind(ce.Kind), ce.Message)
	}

	switch {
	case errors.Is(err, service.ErrMissingTabID),
		errors.Is(err, service.ErrInvalidContext),
		errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, transcript.ErrUnsupportedFormat),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, history.ErrNothingToSave):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrNotAuthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, classify.MessageAuthExpired)
	case errors.Is(err, history.ErrConfirmationRequired):
		return fiber.NewError(fiber.StatusPreconditionRequired, err.Error())
	case errors.Is(err, document.ErrUnknownDocument):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}

func statusForKind(kind classify.Kind) int {
	switch kind {
	case classify.KindAuthExpired:
		return fiber.StatusUnauthorized
	case classify.KindValidationFailed, classify.KindFileRejected:
		return fiber.StatusBadRequest
	case classify.KindParseFailed:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusBadGateway
}
