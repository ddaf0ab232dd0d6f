package domain

import "errors"

var (
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnknownUserType    = errors.New("unknown user type")
	ErrNoSession          = errors.New("no session bound to request")
	ErrCorruptSnapshot    = errors.New("corrupt session snapshot")
	ErrIncompleteResponse = errors.New("auth response missing tokens or user")
)
