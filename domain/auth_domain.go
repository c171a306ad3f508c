package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessIssueNonce = "nonce issued, sign the message with your wallet"
	MessageSuccessLogin      = "login successful"
	MessageFailedIssueNonce  = "failed to issue nonce"
	MessageFailedLogin       = "failed to login"

	ErrNonceNotFound    = errors.New("nonce not found or expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("signature does not match address")
)

type (
	NonceRequest struct {
		Address string `json:"address" validate:"required,eth_addr"`
	}

	NonceResponse struct {
		Address   string    `json:"address"`
		Nonce     string    `json:"nonce"`
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	LoginRequest struct {
		Address   string `json:"address" validate:"required,eth_addr"`
		Signature string `json:"signature" validate:"required"`
	}

	LoginResponse struct {
		Token   string `json:"token"`
		Address string `json:"address"`
		Role    string `json:"role"`
	}
)
