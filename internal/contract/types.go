// Package contract holds the event model and the JSON shapes mocal prints.
package contract

import "time"

// SchemaVersion tags every JSON envelope. Bump it when a field changes
// meaning.
const SchemaVersion = "v1"

type ErrorCode string

const (
	ErrGeneric          ErrorCode = "GENERIC_FAILURE"
	ErrInvalidUsage     ErrorCode = "INVALID_USAGE"
	ErrValidation       ErrorCode = "VALIDATION_FAILED"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Doctor check statuses.
const (
	CheckOK   = "ok"
	CheckFail = "fail"
)

// SuccessEnvelope wraps a command result in JSON mode.
type SuccessEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Command       string         `json:"command"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Data          any            `json:"data"`
	Meta          map[string]any `json:"meta"`
	Warnings      []string       `json:"warnings"`
}

// ErrorEnvelope is written to stderr when a command fails in JSON mode.
type ErrorEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Command       string         `json:"command,omitempty"`
	Error         ErrorBody      `json:"error"`
	Meta          map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Hint    string    `json:"hint,omitempty"`
}

// DoctorCheck is one line of the store health report.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
