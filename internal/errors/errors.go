// Package errors holds the error taxonomy shared by all wifitracker packages.
//
// Per-record and per-device failures (decode, vendor lookup) are contained
// in their layer and turned into a log entry plus a skip or sentinel value.
// Only I/O failures and alias conflicts reach the caller.
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Not found errors
	ErrNotFound       = errors.New("not found")
	ErrVendorNotFound = errors.New("vendor not found")

	// Already exists errors
	ErrAlreadyExists   = errors.New("already exists")
	ErrAliasAlreadySet = errors.New("device alias already set")

	// Decode errors
	ErrDecode           = errors.New("decode error")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// Validation errors
	ErrInvalidMAC    = errors.New("invalid MAC address")
	ErrInvalidSSID   = errors.New("invalid SSID")
	ErrInvalidAlias  = errors.New("invalid alias")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Lookup errors
	ErrVendorMalformed  = errors.New("malformed vendor response")
	ErrLookupFailed     = errors.New("vendor lookup failed")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")

	// Store errors
	ErrWriterClosed = errors.New("writer is closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrVendorNotFound)
}

// IsAlreadyExists returns true if err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAliasAlreadySet)
}

// IsDecode returns true if err came from decoding a log record.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidTimestamp)
}

// IsInvalidTimestamp returns true if only the capture time of a record
// failed to decode.
func IsInvalidTimestamp(err error) bool {
	return errors.Is(err, ErrInvalidTimestamp)
}

// IsValidation returns true if err is an input validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMAC) ||
		errors.Is(err, ErrInvalidSSID) ||
		errors.Is(err, ErrInvalidAlias) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsLookupError returns true if err is any vendor lookup failure.
func IsLookupError(err error) bool {
	return errors.Is(err, ErrVendorNotFound) ||
		errors.Is(err, ErrVendorMalformed) ||
		errors.Is(err, ErrLookupFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}

// IsRetriable returns true if the error is potentially retriable.
// Enrichment never retries; callers driving their own lookups may.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}

// LookupKind returns a short label for a lookup error, used in log entries.
func LookupKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVendorNotFound):
		return "not_found"
	case errors.Is(err, ErrVendorMalformed):
		return "malformed"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrLookupFailed):
		return "network"
	default:
		return "unknown"
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewAliasAlreadySet creates an alias conflict error for a device.
func NewAliasAlreadySet(mac, existing string) error {
	return fmt.Errorf("device '%s' has alias '%s': %w", mac, existing, ErrAliasAlreadySet)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewDecode creates a decode error with context.
func NewDecode(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrDecode)
}

// NewValidation creates a config validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}
