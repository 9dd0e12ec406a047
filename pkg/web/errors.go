package web

import (
	"errors"
	"log/slog"

	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// issuesProblem is a 422 problem carrying the issues that blocked a save.
type issuesProblem struct {
	*problems.Problem

	Issues []models.ValidationIssue `json:"issues"`
}

// requestProblem is a 502/503 problem for a failed execution request.
type requestProblem struct {
	*problems.Problem

	Retryable bool `json:"retryable"`
}

// payloadProblem points at the byte offset where payload parsing failed.
type payloadProblem struct {
	*problems.Problem

	Offset int64 `json:"offset"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps service, editor and execution errors to problem responses.
func handleServiceError(c fiber.Ctx, logger *slog.Logger, err error) error {
	var (
		validationFailed *editor.ValidationFailedError
		payloadErr       *execution.PayloadParseError
		requestErr       *execution.RequestError
	)

	switch {
	case errors.As(err, &validationFailed):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("validation_failed").
			WithDetail(validationFailed.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(issuesProblem{Problem: problem, Issues: validationFailed.Issues})

	case errors.As(err, &payloadErr):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_payload").
			WithDetail(payloadErr.Error())

		return c.Status(fiber.StatusBadRequest).JSON(payloadProblem{Problem: problem, Offset: payloadErr.Offset})

	case execution.IsCircuitOpen(err):
		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("execution_unavailable").
			WithDetail("execution endpoint is temporarily unavailable")

		return c.Status(fiber.StatusServiceUnavailable).JSON(requestProblem{Problem: problem, Retryable: true})

	case errors.As(err, &requestErr):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("execution_failed").
			WithDetail(requestErr.Error())

		return c.Status(fiber.StatusBadGateway).JSON(requestProblem{Problem: problem, Retryable: requestErr.Retryable()})

	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsNotFoundError(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		logger.ErrorContext(c.Context(), "Unhandled request error", "path", c.Path(), "error", err)

		// Log unexpected errors but don't expose details
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("internal error")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
