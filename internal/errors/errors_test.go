package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWeakPasswordError(t *testing.T) {
	err := WeakPasswordError{Length: 5}

	if !strings.Contains(err.Error(), "5 characters") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "minimum 8") {
		t.Errorf("minimum length missing from message: %q", err.Error())
	}
	if !IsWeakPassword(err) {
		t.Error("IsWeakPassword(WeakPasswordError) = false")
	}
	if IsWeakPassword(ErrAuthentication) {
		t.Error("IsWeakPassword(ErrAuthentication) = true")
	}
}

func TestFormatError(t *testing.T) {
	err := FormatError{Reason: "unsupported container version 2"}

	if !strings.Contains(err.Error(), "unsupported container version 2") {
		t.Errorf("unexpected message: %q", err.Error())
	}

	wrapped := fmt.Errorf("loading note: %w", err)
	if !IsFormat(wrapped) {
		t.Error("IsFormat should see through wrapping")
	}
}

func TestStateError(t *testing.T) {
	err := StateError{Op: "read", State: "buffer is obfuscated"}

	if err.Error() != "read not allowed while buffer is obfuscated" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !IsState(err) {
		t.Error("IsState(StateError) = false")
	}
}

func TestReadOnlyError(t *testing.T) {
	err := ReadOnlyError{Op: "insert"}

	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !IsReadOnly(err) {
		t.Error("IsReadOnly(ReadOnlyError) = false")
	}
	if IsState(err) {
		t.Error("ReadOnlyError must not satisfy IsState")
	}
}

func TestSentinels(t *testing.T) {
	if !errors.Is(fmt.Errorf("save: %w", ErrSessionEnding), ErrSessionEnding) {
		t.Error("ErrSessionEnding lost through wrapping")
	}
	if !errors.Is(fmt.Errorf("open: %w", ErrAuthentication), ErrAuthentication) {
		t.Error("ErrAuthentication lost through wrapping")
	}
}

func TestUserError(t *testing.T) {
	inner := errors.New("no such file")
	err := UserError{
		Message:    "Cannot open note",
		Suggestion: "Check the file path",
		Err:        inner,
	}

	if !strings.Contains(err.Error(), "Cannot open note") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Check the file path") {
		t.Errorf("suggestion missing: %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("UserError should unwrap to the inner error")
	}
}
