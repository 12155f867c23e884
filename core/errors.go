package core

import "errors"

var (
	ErrExpiredAssertion     = errors.New("auth assertion has expired")
	ErrFutureTimestamp      = errors.New("auth assertion timestamp is in the future")
	ErrMessageMismatch      = errors.New("auth message does not match canonical template")
	ErrVerificationFailed   = errors.New("signature verification failed")
	ErrInvalidWallet        = errors.New("invalid wallet address")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidNonce         = errors.New("invalid nonce")
	ErrMissingAuthData      = errors.New("missing authentication data")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrConfiguration        = errors.New("service configuration error")
	ErrActionInFlight       = errors.New("an action is already in flight")
	ErrUpdateTimeout        = errors.New("timed out waiting for action confirmation")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrInvalidToken         = errors.New("invalid session token")
	ErrTokenExpired         = errors.New("session token has expired")
)
