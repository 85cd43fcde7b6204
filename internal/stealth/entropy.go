package stealth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/awnumar/memguard"
)

// aslrAnchor exists so its address, randomized by ASLR, can feed the
// key derivation.
var aslrAnchor byte = 0xa5

// deriveKey produces the 32-byte ephemeral stealth key from volatile
// system signals: none of the inputs is recoverable from disk
// artifacts, and the crypto/rand contribution makes the key unique per
// process start.
func deriveKey() (*[32]byte, error) {
	var entropy []byte

	if host, err := os.Hostname(); err == nil {
		entropy = append(entropy, host...)
	}
	entropy = append(entropy, runtime.GOOS...)
	entropy = append(entropy, runtime.GOARCH...)
	entropy = append(entropy, runtime.Version()...)

	entropy = binary.LittleEndian.AppendUint64(entropy, bootTime())
	entropy = binary.LittleEndian.AppendUint64(entropy, uint64(uintptr(unsafe.Pointer(&aslrAnchor))))
	entropy = binary.LittleEndian.AppendUint64(entropy, uint64(os.Getpid()))
	entropy = binary.LittleEndian.AppendUint64(entropy, uint64(time.Now().UnixNano()))

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, err
	}
	entropy = append(entropy, random...)

	shuffle(entropy)

	sum := sha256.Sum256(entropy)
	memguard.WipeBytes(entropy)
	memguard.WipeBytes(random)
	return &sum, nil
}

// shuffle mixes the entropy bytes using the data itself as the swap
// schedule, so the layout of the hashed input is not a fixed
// concatenation.
func shuffle(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		j := (int(data[i]) + i) % n
		data[i], data[j] = data[j], data[i]
	}
}
