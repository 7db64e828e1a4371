// Package errors enumerates the error taxonomy of the wire protocol and
// maps it to HTTP-style status codes, using flat sentinel errors over a
// heavyweight exception hierarchy.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels. Wrap with fmt.Errorf("%w: detail", Err...) to attach context
// while remaining errors.Is-comparable to the sentinel.
var (
	ErrNotFound          = errors.New("not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConvert           = errors.New("value conversion error")
	ErrStorage           = errors.New("storage error")
	ErrEncode            = errors.New("encode error")
	ErrDecode            = errors.New("decode error")
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrHandshake         = errors.New("handshake error")
	ErrCertificateParse  = errors.New("certificate parse error")
	ErrInternal          = errors.New("internal error")
	ErrUnimplemented     = errors.New("unimplemented")
)

// NotFound wraps ErrNotFound with the (table,key) that was missing.
func NotFound(table, key string) error {
	return fmt.Errorf("%w: table=%q key=%q", ErrNotFound, table, key)
}

// TableNotFound wraps ErrTableNotFound with the missing table's name.
func TableNotFound(table string) error {
	return fmt.Errorf("%w: table=%q", ErrTableNotFound, table)
}

// Invalid wraps ErrInvalidCommand with a human-readable reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCommand, reason)
}

// Storage wraps ErrStorage with the failing operation's detail.
func Storage(op, table, key, detail string) error {
	return fmt.Errorf("%w: op=%s table=%q key=%q: %s", ErrStorage, op, table, key, detail)
}

// ToStatus maps an error from this taxonomy to an HTTP-style status code
// per the wire protocol's conventions. Unrecognized errors map to
// 500, matching the Internal(detail) catch-all.
func ToStatus(err error) uint32 {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTableNotFound):
		return 404
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, ErrConvert):
		return 400
	case errors.Is(err, ErrPermissionDenied):
		return 403
	default:
		return 500
	}
}
