package stealth

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/chacha20"

	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/secure"
)

func TestObfuscateRevealRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := New(true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := []byte("# secret meeting notes\nnobody must see this")
	buf := secure.FromPlaintext(append([]byte(nil), content...))
	defer buf.Wipe()

	if err := s.Obfuscate(buf); err != nil {
		t.Fatalf("Obfuscate() error = %v", err)
	}
	if !buf.Obfuscated() {
		t.Error("buffer not marked obfuscated")
	}
	if err := buf.View(func([]byte) {}); !amErrors.IsState(err) {
		t.Errorf("View() while obfuscated = %v, want StateError", err)
	}

	if err := s.Reveal(buf); err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	var got []byte
	if err := buf.View(func(p []byte) { got = append(got, p...) }); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content after reveal = %q, want %q", got, content)
	}
}

func TestObfuscateChangesBytes(t *testing.T) {
	t.Parallel()

	s, err := New(true)
	if err != nil {
		t.Fatal(err)
	}

	content := bytes.Repeat([]byte("plaintext "), 30)
	buf := secure.FromPlaintext(append([]byte(nil), content...))
	defer buf.Wipe()

	if err := s.Obfuscate(buf); err != nil {
		t.Fatal(err)
	}

	// Peek at the masked bytes through Unmask, inverting afterwards so
	// the buffer state stays consistent.
	var masked []byte
	err = buf.Unmask(func(nonce, p []byte) {
		masked = append(masked, p[:len(content)]...)
		reapplyKeystream(t, s, nonce, p)
	})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(masked, content) {
		t.Error("obfuscated bytes identical to plaintext")
	}
}

func TestNonceUniquePerEvent(t *testing.T) {
	t.Parallel()

	s, err := New(true)
	if err != nil {
		t.Fatal(err)
	}

	buf := secure.FromPlaintext([]byte("same content twice"))
	defer buf.Wipe()

	nonces := make([][]byte, 0, 2)
	for i := 0; i < 2; i++ {
		if err := s.Obfuscate(buf); err != nil {
			t.Fatal(err)
		}
		var n []byte
		err := buf.Unmask(func(nonce, p []byte) {
			n = append(n, nonce...)
			reapplyKeystream(t, s, nonce, p)
		})
		if err != nil {
			t.Fatal(err)
		}
		nonces = append(nonces, n)
	}

	if bytes.Equal(nonces[0], nonces[1]) {
		t.Error("nonce reused across obfuscation events")
	}
}

func TestDisabledStateErrors(t *testing.T) {
	t.Parallel()

	s, err := New(false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Error("Enabled() = true for disabled state")
	}

	buf := secure.FromPlaintext([]byte("visible"))
	defer buf.Wipe()

	if err := s.Obfuscate(buf); !amErrors.IsState(err) {
		t.Errorf("Obfuscate() with stealth disabled = %v, want StateError", err)
	}
	if err := s.Reveal(buf); !amErrors.IsState(err) {
		t.Errorf("Reveal() with stealth disabled = %v, want StateError", err)
	}
}

func TestKeysDifferAcrossStates(t *testing.T) {
	t.Parallel()

	// Two states obfuscating identical content must produce different
	// masked bytes: each derivation includes fresh per-process entropy.
	content := bytes.Repeat([]byte{0x00}, 256)

	masked := make([][]byte, 0, 2)
	for i := 0; i < 2; i++ {
		s, err := New(true)
		if err != nil {
			t.Fatal(err)
		}
		buf := secure.FromPlaintext(append([]byte(nil), content...))
		if err := s.Obfuscate(buf); err != nil {
			t.Fatal(err)
		}
		var m []byte
		if err := buf.Unmask(func(_, p []byte) {
			m = append(m, p[:len(content)]...)
		}); err != nil {
			t.Fatal(err)
		}
		masked = append(masked, m)
		buf.Wipe()
	}

	if bytes.Equal(masked[0], masked[1]) {
		t.Error("two independent stealth keys produced identical keystreams")
	}
}

func TestShuffleHandlesSmallInputs(t *testing.T) {
	t.Parallel()

	shuffle(nil)
	shuffle([]byte{1})

	data := []byte{1, 2, 3, 4, 5}
	sum := 0
	shuffle(data)
	for _, b := range data {
		sum += int(b)
	}
	if sum != 15 {
		t.Error("shuffle must permute, not alter, the bytes")
	}
}

// reapplyKeystream XORs the keystream for nonce back over p, restoring
// plaintext inside an Unmask callback.
func reapplyKeystream(t *testing.T, s *State, nonce, p []byte) {
	t.Helper()
	key, err := s.key.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer key.Destroy()
	cipher, err := chacha20.NewUnauthenticatedCipher(key.Bytes(), nonce)
	if err != nil {
		t.Fatal(err)
	}
	cipher.XORKeyStream(p, p)
}
