package container

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/secure"
)

// fastParams keeps Argon2id cheap enough for tests while exercising the
// real derivation path.
func fastParams() Params {
	return Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1}
}

func bufferBytes(t *testing.T, buf *secure.Buffer) []byte {
	t.Helper()
	out := []byte{}
	require.NoError(t, buf.View(func(p []byte) { out = append(out, p...) }))
	return out
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "regular note", plaintext: []byte("# shopping\nmilk, eggs, tinfoil")},
		{name: "empty note", plaintext: []byte{}},
		{name: "binary content", plaintext: []byte{0x00, 0xff, 0x10, 0x20, 0x00}},
		{name: "multibyte text", plaintext: []byte("später — naïve — 秘密")},
	}

	codec := New(fastParams())
	password := []byte("correct horse battery")

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sealed, err := codec.Seal(tt.plaintext, password)
			require.NoError(t, err)

			buf, err := codec.Open(sealed, password)
			require.NoError(t, err)
			defer buf.Wipe()

			assert.Equal(t, tt.plaintext, bufferBytes(t, buf))
		})
	}
}

func TestSealFreshSaltAndNonce(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	password := []byte("longenoughpassword")
	plaintext := []byte("same note saved twice")

	first, err := codec.Seal(plaintext, password)
	require.NoError(t, err)
	second, err := codec.Seal(plaintext, password)
	require.NoError(t, err)

	saltA := first[len(magic)+1 : len(magic)+1+saltSize]
	saltB := second[len(magic)+1 : len(magic)+1+saltSize]
	assert.False(t, bytes.Equal(saltA, saltB), "salt reused across saves")

	nonceA := first[headerSize-nonceSize : headerSize]
	nonceB := second[headerSize-nonceSize : headerSize]
	assert.False(t, bytes.Equal(nonceA, nonceB), "nonce reused across saves")

	assert.False(t, bytes.Equal(first, second), "identical containers for separate saves")
}

func TestWrongPasswordFailsAuthentication(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	sealed, err := codec.Seal([]byte("private"), []byte("password-one"))
	require.NoError(t, err)

	buf, err := codec.Open(sealed, []byte("password-two"))
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, amErrors.ErrAuthentication)
}

func TestBitFlipsFailAuthentication(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	password := []byte("flip-proof-pass")
	sealed, err := codec.Seal([]byte("integrity matters"), password)
	require.NoError(t, err)

	// Every single-bit flip across ciphertext and tag must fail closed,
	// never yield corrupted plaintext.
	for i := headerSize; i < len(sealed); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), sealed...)
			tampered[i] ^= 1 << bit

			buf, err := codec.Open(tampered, password)
			if buf != nil || !errors.Is(err, amErrors.ErrAuthentication) {
				t.Fatalf("flip byte %d bit %d: got buf=%v err=%v, want ErrAuthentication", i, bit, buf, err)
			}
		}
	}
}

func TestTruncationFailsClosed(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	password := []byte("truncation-pass")
	sealed, err := codec.Seal([]byte("short but real"), password)
	require.NoError(t, err)

	// Cutting into the ciphertext keeps a valid header: the AEAD must
	// reject the remainder.
	_, err = codec.Open(sealed[:len(sealed)-5], password)
	assert.ErrorIs(t, err, amErrors.ErrAuthentication)

	// Cutting into the header is a format problem, detected before any
	// decryption attempt.
	_, err = codec.Open(sealed[:headerSize-3], password)
	assert.True(t, amErrors.IsFormat(err), "header truncation should be a FormatError, got %v", err)
}

func TestWeakPasswordRejectedBeforeKDF(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	derivations := 0
	codec.derive = func(password, salt []byte, p Params) []byte {
		derivations++
		return make([]byte, keySize)
	}

	for _, password := range []string{"", "short", "seven77"} {
		sealed, err := codec.Seal([]byte("anything at all"), []byte(password))
		assert.Nil(t, sealed)
		assert.True(t, amErrors.IsWeakPassword(err), "password %q: got %v", password, err)
	}

	assert.Zero(t, derivations, "weak passwords must not reach the KDF")

	// Exactly at the minimum the KDF runs.
	_, err := codec.Seal([]byte("ok"), []byte("eightchr"))
	require.NoError(t, err)
	assert.Equal(t, 1, derivations)
}

func TestFormatErrors(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	password := []byte("format-checks")
	sealed, err := codec.Seal([]byte("well formed"), password)
	require.NoError(t, err)

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		bad := append([]byte(nil), sealed...)
		copy(bad, "NOTANOTE")
		_, err := codec.Open(bad, password)
		assert.True(t, amErrors.IsFormat(err), "got %v", err)
	})

	t.Run("old version rejected without decryption", func(t *testing.T) {
		t.Parallel()
		bad := append([]byte(nil), sealed...)
		bad[len(magic)] = 0x02
		_, err := codec.Open(bad, password)
		assert.True(t, amErrors.IsFormat(err), "got %v", err)
		assert.Contains(t, err.Error(), "version 2")
	})

	t.Run("garbage input", func(t *testing.T) {
		t.Parallel()
		_, err := codec.Open([]byte("definitely not a container"), password)
		assert.True(t, amErrors.IsFormat(err), "got %v", err)
	})
}

func TestParamsRecordedInContainer(t *testing.T) {
	t.Parallel()

	params := Params{Time: 2, MemoryKiB: 16 * 1024, Parallelism: 2}
	codec := New(params)
	sealed, err := codec.Seal([]byte("params travel with the file"), []byte("recorded-pass"))
	require.NoError(t, err)

	hdr, err := ParseHeader(sealed)
	require.NoError(t, err)
	assert.Equal(t, byte(Version), hdr.Version)
	assert.Equal(t, params, hdr.Params)

	// A codec configured with different defaults still opens the file
	// using the recorded parameters.
	other := New(fastParams())
	buf, err := other.Open(sealed, []byte("recorded-pass"))
	require.NoError(t, err)
	defer buf.Wipe()
	assert.Equal(t, []byte("params travel with the file"), bufferBytes(t, buf))
}

func TestNoPlaintextMetadataBeyondLength(t *testing.T) {
	t.Parallel()

	codec := New(fastParams())
	sealed, err := codec.Seal([]byte("length only"), []byte("metadata-pass"))
	require.NoError(t, err)

	hdr, err := ParseHeader(sealed)
	require.NoError(t, err)

	overhead := len(sealed) - hdr.CiphertextSize
	assert.Equal(t, headerSize, overhead, "container carries bytes beyond header+ciphertext")
}

func TestWriteFileReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "note"+Extension)

	codec := New(fastParams())
	sealed, err := codec.Seal([]byte("to disk and back"), []byte("disk-pass-123"))
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, sealed))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0400), info.Mode().Perm(), "saved container should be read-only")

	data, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sealed, data)

	// Saving again replaces the read-only file.
	resealed, err := codec.Seal([]byte("second save"), []byte("disk-pass-123"))
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, resealed))

	data, err = ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, resealed, data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "note"+Extension, NormalizePath("note"))
	assert.Equal(t, "note.txt", NormalizePath("note.txt"))
	assert.Equal(t, "note"+Extension, NormalizePath("note"+Extension))
}
