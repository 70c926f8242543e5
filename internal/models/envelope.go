package models

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the error member of a failed envelope.
type ErrorBody struct {
	Code   ErrorKind `json:"code"`
	Detail string    `json:"detail"`
}

// Envelope is the JSON wrapper of every response:
//
//	success: {"status": 0, "error": null, "data": <T>}
//	failure: {"status": <http status>, "error": {"code", "detail"}, "data": null}
type Envelope[T any] struct {
	Status int        `json:"status"`
	Error  *ErrorBody `json:"error"`
	Data   *T         `json:"data"`
}

// HTTPStatus is the only place an error kind is turned into a status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case NotFound:
		return fiber.StatusNotFound
	case BadRequest, BusinessException:
		return fiber.StatusBadRequest
	case MethodNotAllowed:
		return fiber.StatusMethodNotAllowed
	default:
		return fiber.StatusInternalServerError
	}
}

// WrapSuccess wraps data into a success envelope.
func WrapSuccess[T any](data T) Envelope[T] {
	return Envelope[T]{Status: 0, Data: &data}
}

// WrapError wraps err into a failure envelope and returns the HTTP status to
// send with it.
func WrapError(err *AppError) (int, Envelope[any]) {
	status := err.Kind.HTTPStatus()
	return status, Envelope[any]{
		Status: status,
		Error: &ErrorBody{
			Code:   err.Kind,
			Detail: err.Detail(),
		},
	}
}

// MapRejection translates any failure reaching the edge of the system into an
// AppError. Failures it does not recognise are logged once and reported as
// InternalServerError.
func MapRejection(ctx context.Context, logger *slog.Logger, err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == InternalServerError {
			logUnhandled(ctx, logger, err)
		}
		return appErr
	}

	var bodyErr *BodyError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &bodyErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return NewBadRequestError(err)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return NewNotFoundError()
		case fiber.StatusMethodNotAllowed:
			return NewMethodNotAllowedError()
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			return NewBadRequestError(err)
		}
	}

	logUnhandled(ctx, logger, err)
	return NewInternalError(err)
}

// logUnhandled must never fail the response it is reporting on.
func logUnhandled(ctx context.Context, logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	defer func() { _ = recover() }()
	logger.ErrorContext(ctx, "unhandled error", slog.String("error", err.Error()))
}

// RespondWithError maps err and writes the failure envelope.
func RespondWithError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	status, envelope := WrapError(MapRejection(c.UserContext(), logger, err))
	return c.Status(status).JSON(envelope)
}

// RespondWithData writes a success envelope.
func RespondWithData[T any](c *fiber.Ctx, data T) error {
	return c.Status(fiber.StatusOK).JSON(WrapSuccess(data))
}

// ErrorHandler is installed as the Fiber error handler so that handlers only
// return errors and never pick status codes themselves.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return RespondWithError(c, logger, err)
	}
}
