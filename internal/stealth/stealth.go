// Package stealth implements the optional in-RAM obfuscation layer.
//
// A 32-byte key is derived once per process from volatile runtime
// signals and sealed in a memguard enclave. Idle buffers are XORed with
// a ChaCha20 keystream under that key so a memory snapshot taken during
// an idle period does not show raw plaintext. This is a best-effort
// deterrent: key and data share an address space, so it is not
// confidentiality against a live-process attacker.
package stealth

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20"

	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/secure"
)

// State holds the process-wide stealth key. Read-only after New; no
// locking is needed around it.
type State struct {
	enabled bool
	key     *memguard.Enclave
}

// New creates the stealth state. When enabled, the ephemeral key is
// derived from runtime entropy and sealed; it never touches disk and is
// independent of any password-derived persistence key.
func New(enabled bool) (*State, error) {
	s := &State{enabled: enabled}
	if !enabled {
		return s, nil
	}
	key, err := deriveKey()
	if err != nil {
		return nil, fmt.Errorf("deriving stealth key: %w", err)
	}
	// NewEnclave wipes the source slice after sealing.
	s.key = memguard.NewEnclave(key[:])
	return s, nil
}

// Enabled reports whether stealth obfuscation is active for this
// process.
func (s *State) Enabled() bool {
	return s.enabled
}

// Obfuscate masks buf's contents in place with a ChaCha20 keystream
// under the stealth key and a fresh nonce. Pure in-memory transform:
// no disk I/O, no blocking on external resources.
func (s *State) Obfuscate(buf *secure.Buffer) error {
	if !s.enabled {
		return amErrors.StateError{Op: "obfuscate", State: "stealth encryption is disabled"}
	}
	nonce := make([]byte, chacha20.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating stealth nonce: %w", err)
	}
	key, err := s.key.Open()
	if err != nil {
		return fmt.Errorf("opening stealth key: %w", err)
	}
	defer key.Destroy()

	cipher, err := chacha20.NewUnauthenticatedCipher(key.Bytes(), nonce)
	if err != nil {
		return fmt.Errorf("initializing stealth cipher: %w", err)
	}
	return buf.Mask(nonce, func(p []byte) {
		cipher.XORKeyStream(p, p)
	})
}

// Reveal restores plaintext for editing, inverting a prior Obfuscate
// using the nonce recorded on the buffer.
func (s *State) Reveal(buf *secure.Buffer) error {
	if !s.enabled {
		return amErrors.StateError{Op: "reveal", State: "stealth encryption is disabled"}
	}
	key, err := s.key.Open()
	if err != nil {
		return fmt.Errorf("opening stealth key: %w", err)
	}
	defer key.Destroy()

	return buf.Unmask(func(nonce, p []byte) {
		cipher, cerr := chacha20.NewUnauthenticatedCipher(key.Bytes(), nonce)
		if cerr != nil {
			// Nonce came from Mask, key length is fixed; unreachable.
			panic(cerr)
		}
		cipher.XORKeyStream(p, p)
	})
}

// Close drops the sealed key. The enclave ciphertext is useless without
// the memguard session key, which memguard.Purge destroys at exit.
func (s *State) Close() {
	s.key = nil
	s.enabled = false
}
