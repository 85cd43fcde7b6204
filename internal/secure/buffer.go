package secure

import (
	"sync"

	"github.com/awnumar/memguard"

	amErrors "github.com/Laticee/amnesia/internal/errors"
)

// minCapacity keeps tiny notes from triggering immediate regrowth.
const minCapacity = 4096

// Buffer is a memory region holding note plaintext. The zero value is
// not usable; use Allocate or FromPlaintext.
type Buffer struct {
	mu         sync.Mutex
	data       []byte // backing storage, always fully owned
	n          int    // content length
	locked     bool   // mlock succeeded for data
	obfuscated bool
	wiped      bool
	nonce      []byte // stealth nonce for the current obfuscation event
}

// Allocate creates an empty buffer with at least size bytes of backing
// capacity. Memory locking is requested but its failure is not an
// error; check Locked afterwards.
func Allocate(size int) *Buffer {
	if size < minCapacity {
		size = minCapacity
	}
	b := &Buffer{data: make([]byte, size)}
	b.locked = lockMemory(b.data) == nil
	return b
}

// FromPlaintext creates a buffer holding a copy of p. The source slice
// is wiped once copied so only the buffer retains the plaintext.
func FromPlaintext(p []byte) *Buffer {
	b := Allocate(len(p))
	copy(b.data, p)
	b.n = len(p)
	memguard.WipeBytes(p)
	return b
}

// Locked reports whether the backing memory is pinned against swap.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Obfuscated reports whether the stealth layer currently masks the
// contents.
func (b *Buffer) Obfuscated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.obfuscated
}

// Wiped reports whether the buffer has been wiped.
func (b *Buffer) Wiped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wiped
}

// Len returns the content length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *Buffer) plaintextState(op string) error {
	if b.wiped {
		return amErrors.StateError{Op: op, State: "buffer is wiped"}
	}
	if b.obfuscated {
		return amErrors.StateError{Op: op, State: "buffer is obfuscated"}
	}
	return nil
}

// View calls fn with the current contents. The slice is only valid for
// the duration of the call and must not be retained.
func (b *Buffer) View(fn func(p []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.plaintextState("read"); err != nil {
		return err
	}
	fn(b.data[:b.n])
	return nil
}

// SetContent replaces the entire contents with a copy of p.
func (b *Buffer) SetContent(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.plaintextState("write"); err != nil {
		return err
	}
	b.ensureCapacity(len(p))
	memguard.WipeBytes(b.data)
	copy(b.data, p)
	b.n = len(p)
	return nil
}

// InsertAt inserts a copy of p at byte offset off.
func (b *Buffer) InsertAt(off int, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.plaintextState("write"); err != nil {
		return err
	}
	if off < 0 || off > b.n {
		return amErrors.StateError{Op: "write", State: "offset out of range"}
	}
	b.ensureCapacity(b.n + len(p))
	copy(b.data[off+len(p):b.n+len(p)], b.data[off:b.n])
	copy(b.data[off:], p)
	b.n += len(p)
	return nil
}

// DeleteAt removes count bytes starting at byte offset off, zeroing the
// vacated tail so deleted plaintext does not linger past the content
// length.
func (b *Buffer) DeleteAt(off, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.plaintextState("write"); err != nil {
		return err
	}
	if off < 0 || count < 0 || off+count > b.n {
		return amErrors.StateError{Op: "write", State: "range out of bounds"}
	}
	copy(b.data[off:], b.data[off+count:b.n])
	memguard.WipeBytes(b.data[b.n-count : b.n])
	b.n -= count
	return nil
}

// Mask applies transform to the whole backing region and records nonce
// as the current obfuscation event. Only the stealth layer calls this.
func (b *Buffer) Mask(nonce []byte, transform func(p []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return amErrors.StateError{Op: "obfuscate", State: "buffer is wiped"}
	}
	if b.obfuscated {
		return amErrors.StateError{Op: "obfuscate", State: "buffer is already obfuscated"}
	}
	transform(b.data)
	b.nonce = append(b.nonce[:0], nonce...)
	b.obfuscated = true
	return nil
}

// Unmask inverts a previous Mask. transform receives the nonce recorded
// by Mask together with the backing region.
func (b *Buffer) Unmask(transform func(nonce, p []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wiped {
		return amErrors.StateError{Op: "reveal", State: "buffer is wiped"}
	}
	if !b.obfuscated {
		return amErrors.StateError{Op: "reveal", State: "buffer is not obfuscated"}
	}
	transform(b.nonce, b.data)
	memguard.WipeBytes(b.nonce)
	b.nonce = b.nonce[:0]
	b.obfuscated = false
	return nil
}

// Wipe overwrites every backing byte with zero and unpins the memory.
// It is idempotent and cannot fail: both the explicit exit path and a
// timer expiry may call it during shutdown.
func (b *Buffer) Wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wipeLocked()
}

func (b *Buffer) wipeLocked() {
	if b.wiped {
		return
	}
	memguard.WipeBytes(b.data)
	memguard.WipeBytes(b.nonce)
	if b.locked {
		_ = unlockMemory(b.data)
		b.locked = false
	}
	b.n = 0
	b.obfuscated = false
	b.wiped = true
}

// ensureCapacity grows the backing storage so it can hold need bytes.
// The old region is wiped and unpinned only after its contents have
// been copied out. Caller holds b.mu.
func (b *Buffer) ensureCapacity(need int) {
	if need <= len(b.data) {
		return
	}
	grow := len(b.data) * 2
	if grow < need {
		grow = need
	}
	fresh := make([]byte, grow)
	freshLocked := lockMemory(fresh) == nil
	copy(fresh, b.data[:b.n])

	memguard.WipeBytes(b.data)
	if b.locked {
		_ = unlockMemory(b.data)
	}
	b.data = fresh
	b.locked = freshLocked
}
