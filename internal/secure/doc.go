// Package secure implements the pinned, wipe-on-release memory buffer
// that holds note plaintext for the lifetime of a session.
//
// A Buffer's backing memory is locked into RAM via mlock on a
// best-effort basis. If locking fails (RLIMIT_MEMLOCK, unsupported
// platform) the buffer still works; Locked() reports the degraded
// state so callers can warn about it.
//
// Wipe overwrites every backing byte with zero before the memory is
// released, and is idempotent: both the explicit exit path and a timer
// expiry may attempt it during shutdown.
//
// The obfuscated state is toggled exclusively through Mask and Unmask,
// which the stealth layer drives. While obfuscated, all plaintext
// accessors fail with a StateError rather than returning keystream
// garbage.
package secure
