package model

import "errors"

// Error kinds surfaced by marketplace operations. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrProofRejected     = errors.New("proof rejected")
	ErrNoCaller          = errors.New("no caller identity")
)
