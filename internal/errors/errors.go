// Package errors defines the error taxonomy for the secure session
// subsystem. Cryptographic and format errors are always surfaced to the
// caller; hardening failures are warnings carried elsewhere and never
// appear here.
package errors

import (
	"errors"
	"fmt"
)

// MinPasswordLength is the minimum accepted save password length.
// Enforced before any key-derivation work happens.
const MinPasswordLength = 8

// ErrAuthentication is returned whenever decrypt-and-verify fails.
// A wrong password, bit corruption, truncated ciphertext and deliberate
// tampering are intentionally indistinguishable through this error.
var ErrAuthentication = errors.New("authentication failed: wrong password or corrupted container")

// ErrSessionEnding is returned for requests that arrive after session
// termination has begun.
var ErrSessionEnding = errors.New("session is terminating: no further requests accepted")

// WeakPasswordError indicates the password is below the minimum length.
type WeakPasswordError struct {
	Length int
}

func (e WeakPasswordError) Error() string {
	return fmt.Sprintf("password too short: %d characters (minimum %d)", e.Length, MinPasswordLength)
}

// FormatError indicates the input is not a recognized container:
// bad magic, unsupported version, or a header too short to parse.
// No decryption is attempted when a FormatError is raised.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string {
	return "invalid container format: " + e.Reason
}

// StateError indicates an operation that is invalid for the current
// buffer or session state, such as reading an obfuscated buffer.
type StateError struct {
	Op    string
	State string
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

// ReadOnlyError indicates a mutation attempted on a read-only session.
// Sessions loaded from a container start read-only; editing requires an
// explicit transition first.
type ReadOnlyError struct {
	Op string
}

func (e ReadOnlyError) Error() string {
	return fmt.Sprintf("%s not allowed: session is read-only", e.Op)
}

// UserError carries a message plus a suggestion for the CLI layer.
type UserError struct {
	Message    string
	Suggestion string
	Err        error
}

func (e UserError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Suggestion != "" {
		msg += "\n  💡 Try: " + e.Suggestion
	}
	return msg
}

func (e UserError) Unwrap() error {
	return e.Err
}

// IsWeakPassword reports whether err is a WeakPasswordError.
func IsWeakPassword(err error) bool {
	var wpe WeakPasswordError
	return errors.As(err, &wpe)
}

// IsFormat reports whether err is a FormatError.
func IsFormat(err error) bool {
	var fe FormatError
	return errors.As(err, &fe)
}

// IsState reports whether err is a StateError.
func IsState(err error) bool {
	var se StateError
	return errors.As(err, &se)
}

// IsReadOnly reports whether err is a ReadOnlyError.
func IsReadOnly(err error) bool {
	var roe ReadOnlyError
	return errors.As(err, &roe)
}
