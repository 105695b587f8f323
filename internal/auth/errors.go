package auth

import "errors"

var (
	// ErrInvalidInput indicates a required argument was empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSigning indicates a token could not be signed.
	ErrSigning = errors.New("token signing failed")
	// ErrInvalidToken indicates a token is malformed or its signature does not match.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthorized indicates the request carries no valid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the identity lacks the privileges for the action.
	ErrForbidden = errors.New("forbidden")
)
