package common

import (
	"errors"
	"net/http"
)

// Code is a stable machine-readable error code included in failure
// responses. The set is fixed: clients match on these strings.
type Code string

const (
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeUserExists      Code = "USER_EXISTS"
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeInvalid2FAToken Code = "INVALID_2FA_TOKEN"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

// CodeOf maps a service error to its protocol code. Unknown errors map to
// CodeInternal so internal failure detail never reaches the caller.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, ErrUserExists):
		return CodeUserExists
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrInvalid2FAToken):
		return CodeInvalid2FAToken
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// HTTPStatus returns the HTTP status a code is reported with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest, CodeUserExists, CodeInvalid2FAToken:
		return http.StatusBadRequest
	case CodeUserNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
