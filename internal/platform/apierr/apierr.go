// Package apierr carries typed API errors from services to the HTTP boundary.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags are part of the wire contract: the boundary layer echoes them in
// the error envelope so programmatic consumers can dispatch on them.
const (
	CodeValidation     = "validation_error"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeConflict       = "conflict"
	CodeSerialization  = "serialization_error"
	CodeInfrastructure = "infrastructure_error"
)

// FieldError is one field-level validation failure, rendered as
// {loc, msg, type} in 422 responses.
type FieldError struct {
	Loc  string `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type Error struct {
	Status int
	Code   string
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Msg: msg}
}

// Validation is a semantic range/contract violation, surfaced as 400.
func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Msg: msg}
}

// Invalid is a schema-level validation failure with field detail, surfaced as 422.
func Invalid(fields ...FieldError) *Error {
	return &Error{
		Status: http.StatusUnprocessableEntity,
		Code:   CodeValidation,
		Msg:    "validation failed",
		Fields: fields,
	}
}

func Field(loc, msg, typ string) FieldError {
	return FieldError{Loc: loc, Msg: msg, Type: typ}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Msg: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Msg: msg}
}

func Serialization(msg string, err error) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeSerialization, Msg: msg, Err: err}
}

func Infrastructure(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInfrastructure, Msg: msg, Err: err}
}

// From extracts a typed *Error, wrapping anything else as infrastructure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Infrastructure("internal error", err)
}
