package services

import "errors"

// Flow failures. Anything else returned by a service is an infrastructure
// error the caller should treat as a generic failure.
var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrSecondFactorRequired  = errors.New("second factor code required")
	ErrInvalidSecondFactor   = errors.New("invalid second factor code")
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired code")
	ErrExpiredOrInvalidProof = errors.New("expired or invalid proof")
	ErrDuplicateIdentity     = errors.New("identity already registered")
	ErrValidation            = errors.New("validation failed")

	ErrInvalidSignature = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
)
