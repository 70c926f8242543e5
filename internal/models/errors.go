package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures a caller can observe.
type ErrorKind int

const (
	InternalServerError ErrorKind = iota
	NotFound
	BadRequest
	MethodNotAllowed
	BusinessException
)

var kindNames = map[ErrorKind]string{
	InternalServerError: "InternalServerError",
	NotFound:            "NotFound",
	BadRequest:          "BadRequest",
	MethodNotAllowed:    "MethodNotAllowed",
	BusinessException:   "BusinessException",
}

// Fixed details for every kind that does not carry a caller-authored message.
var kindDetails = map[ErrorKind]string{
	InternalServerError: "Internal server error",
	NotFound:            "Not found",
	BadRequest:          "Bad request",
	MethodNotAllowed:    "Method not allowed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[InternalServerError]
}

// MarshalText encodes the kind by name so it can be used as the envelope code.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name. Unknown names are rejected.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", string(text))
}

// AppError is the error type handlers and services return to signal a
// failure of a known kind.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = kindDetails[e.Kind]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Detail is the human text sent to the caller. Only business exceptions
// expose their own message; every other kind uses a fixed text so internal
// details never leak.
func (e *AppError) Detail() string {
	if e.Kind == BusinessException {
		return e.Message
	}
	return kindDetails[e.Kind]
}

// Predefined error constructors
func NewNotFoundError() *AppError {
	return &AppError{Kind: NotFound}
}

func NewBadRequestError(err error) *AppError {
	return &AppError{Kind: BadRequest, Err: err}
}

func NewMethodNotAllowedError() *AppError {
	return &AppError{Kind: MethodNotAllowed}
}

func NewBusinessError(message string) *AppError {
	return &AppError{Kind: BusinessException, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{Kind: InternalServerError, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// BodyError marks a request body that could not be decoded into the expected
// shape.
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string {
	return "invalid request body: " + e.Err.Error()
}

func (e *BodyError) Unwrap() error {
	return e.Err
}
