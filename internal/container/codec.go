// Package container implements the encrypted on-disk note format.
//
// Layout, in order: magic "AMNESIO", version byte, 16-byte random salt,
// Argon2id parameters (time, memory in KiB, parallelism), 12-byte
// random nonce, then ChaCha20-Poly1305 ciphertext with its tag. The
// KDF parameters travel in the container so old files stay decodable
// when the defaults change. Nothing else is stored: the only content
// metadata a container leaks is the ciphertext length.
package container

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/secure"
)

const (
	// Version 3 is the first format carrying explicit KDF parameters.
	// Earlier versions derived with implicit defaults and are rejected.
	Version = 0x03

	saltSize  = 16
	nonceSize = chacha20poly1305.NonceSize
	keySize   = chacha20poly1305.KeySize
)

var magic = []byte("AMNESIO")

// headerSize covers magic, version, salt, params and nonce.
var headerSize = len(magic) + 1 + saltSize + 4 + 4 + 1 + nonceSize

// Params are the Argon2id cost parameters recorded in each container.
type Params struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
}

// DefaultParams follows the argon2 package recommendation for
// interactive key derivation.
func DefaultParams() Params {
	return Params{Time: 3, MemoryKiB: 64 * 1024, Parallelism: 4}
}

// Header is the plaintext-readable portion of a container.
type Header struct {
	Version        byte
	Params         Params
	CiphertextSize int
}

// deriveFunc produces a 256-bit key from password and salt. Replaced in
// tests to observe that rejected passwords trigger no derivation work.
type deriveFunc func(password, salt []byte, p Params) []byte

func argon2Key(password, salt []byte, p Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Parallelism, keySize)
}

// Codec seals and opens encrypted containers.
type Codec struct {
	params Params
	derive deriveFunc
}

// New creates a codec sealing with the given KDF parameters. Opening
// always honors the parameters recorded in the container instead.
func New(params Params) *Codec {
	return &Codec{params: params, derive: argon2Key}
}

// Seal encrypts plaintext under password and returns the serialized
// container. Salt and nonce are freshly random on every call; the
// derived key is zeroized before returning.
func (c *Codec) Seal(plaintext, password []byte) ([]byte, error) {
	if len(password) < amErrors.MinPasswordLength {
		// Rejected before any key-derivation work.
		return nil, amErrors.WeakPasswordError{Length: len(password)}
	}

	salt := make([]byte, saltSize)
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	key := c.derive(password, salt, c.params)
	defer memguard.WipeBytes(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}

	out := make([]byte, 0, headerSize+len(plaintext)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, Version)
	out = append(out, salt...)
	out = binary.BigEndian.AppendUint32(out, c.params.Time)
	out = binary.BigEndian.AppendUint32(out, c.params.MemoryKiB)
	out = append(out, c.params.Parallelism)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Open validates, decrypts and verifies a container. The plaintext is
// returned in a freshly allocated secure buffer; the derived key and
// the transient decrypted slice are zeroized before returning.
//
// Wrong password, corruption, truncation and tampering are all
// reported as the same ErrAuthentication.
func (c *Codec) Open(data, password []byte) (*secure.Buffer, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	salt := data[len(magic)+1 : len(magic)+1+saltSize]
	nonce := data[headerSize-nonceSize : headerSize]
	ciphertext := data[headerSize:]

	key := c.derive(password, salt, hdr.Params)
	plaintext, err := func() ([]byte, error) {
		defer memguard.WipeBytes(key)
		aead, aerr := chacha20poly1305.New(key)
		if aerr != nil {
			return nil, fmt.Errorf("initializing cipher: %w", aerr)
		}
		return aead.Open(nil, nonce, ciphertext, nil)
	}()
	if err != nil {
		return nil, amErrors.ErrAuthentication
	}

	// FromPlaintext wipes the transient slice once copied.
	return secure.FromPlaintext(plaintext), nil
}

// ParseHeader validates the magic and version and returns the readable
// header fields without attempting decryption.
func ParseHeader(data []byte) (Header, error) {
	return parseHeader(data)
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, amErrors.FormatError{Reason: "container too short"}
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return Header{}, amErrors.FormatError{Reason: "not an amnesia container"}
	}
	version := data[len(magic)]
	if version != Version {
		return Header{}, amErrors.FormatError{
			Reason: fmt.Sprintf("unsupported container version %d", version),
		}
	}

	off := len(magic) + 1 + saltSize
	return Header{
		Version: version,
		Params: Params{
			Time:        binary.BigEndian.Uint32(data[off : off+4]),
			MemoryKiB:   binary.BigEndian.Uint32(data[off+4 : off+8]),
			Parallelism: data[off+8],
		},
		CiphertextSize: len(data) - headerSize,
	}, nil
}
