// Package session implements the controller that owns the secure
// buffer, races the TTL and idle timers against user interaction, and
// guarantees exactly one wipe on every way out.
package session

import (
	"sync"
	"time"

	"github.com/Laticee/amnesia/internal/container"
	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/guard"
	"github.com/Laticee/amnesia/internal/logging"
	"github.com/Laticee/amnesia/internal/secure"
	"github.com/Laticee/amnesia/internal/stealth"
)

// State is the controller's lifecycle state.
type State int

const (
	StateEditable State = iota
	StateReadOnly
	StateTerminating
	StateTerminated // absorbing
)

func (s State) String() string {
	switch s {
	case StateEditable:
		return "editable"
	case StateReadOnly:
		return "read-only"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason records what ended the session.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonExit
	ReasonTTL
	ReasonIdle
)

func (r Reason) String() string {
	switch r {
	case ReasonExit:
		return "explicit exit"
	case ReasonTTL:
		return "ttl expired"
	case ReasonIdle:
		return "idle timeout"
	default:
		return "none"
	}
}

// Options configure a session. Zero durations disable the respective
// timer.
type Options struct {
	TTL         time.Duration
	IdleTimeout time.Duration
	Stealth     *stealth.State // nil means stealth disabled
	Guard       *guard.Guard   // nil skips terminate-hook integration
	Logger      *logging.Logger
	Codec       *container.Codec // nil uses default KDF parameters
}

// Session owns one secure buffer. All buffer access funnels through it
// so idle-timer resets stay centralized and save and wipe are mutually
// exclusive: both run under mu for their full duration.
type Session struct {
	mu           sync.Mutex
	state        State
	buf          *secure.Buffer
	codec        *container.Codec
	stealth      *stealth.State
	guard        *guard.Guard
	logger       *logging.Logger
	ttl          time.Duration
	idle         time.Duration
	lastActivity time.Time

	reason    Reason
	done      chan struct{}
	stopTimer chan struct{}
	terminate sync.Once
}

// New creates an editable session with an empty secure buffer. The idle
// clock starts at now.
func New(opts Options) *Session {
	s := newSession(secure.Allocate(0), StateEditable, opts)
	s.start()
	return s
}

// Load decrypts a container into a fresh secure buffer and returns a
// session in read-only mode. Editing requires an explicit MakeEditable.
func Load(data, password []byte, opts Options) (*Session, error) {
	codec := opts.Codec
	if codec == nil {
		codec = container.New(container.DefaultParams())
	}
	buf, err := codec.Open(data, password)
	if err != nil {
		return nil, err
	}
	s := newSession(buf, StateReadOnly, opts)
	s.start()
	return s, nil
}

func newSession(buf *secure.Buffer, state State, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}
	codec := opts.Codec
	if codec == nil {
		codec = container.New(container.DefaultParams())
	}
	s := &Session{
		state:        state,
		buf:          buf,
		codec:        codec,
		stealth:      opts.Stealth,
		guard:        opts.Guard,
		logger:       logger,
		ttl:          opts.TTL,
		idle:         opts.IdleTimeout,
		lastActivity: time.Now(),
		done:         make(chan struct{}),
		stopTimer:    make(chan struct{}),
	}
	if !buf.Locked() {
		logger.Warn("memory locking unavailable: note plaintext may be swapped to disk")
	}
	return s
}

func (s *Session) start() {
	if s.guard != nil {
		s.guard.OnTerminate(func() { s.Terminate(ReasonExit) })
	}
	if s.ttl > 0 || s.idle > 0 {
		go s.watchTimers()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason reports what terminated the session. Valid once Done is
// closed.
func (s *Session) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done is closed when the session reaches Terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// MemoryLocked reports whether the note buffer is pinned against swap,
// for degraded-security reporting.
func (s *Session) MemoryLocked() bool {
	return s.buf.Locked()
}

// Obfuscated reports whether the buffer is currently masked.
func (s *Session) Obfuscated() bool {
	return s.buf.Obfuscated()
}

// touch resets the idle clock. Caller holds s.mu.
func (s *Session) touch() {
	s.lastActivity = time.Now()
}

func (s *Session) activeLocked() error {
	if s.state == StateTerminating || s.state == StateTerminated {
		return amErrors.ErrSessionEnding
	}
	return nil
}

// MakeEditable transitions a read-only session to editable. This is the
// explicit user action required after loading from a container.
func (s *Session) MakeEditable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	s.state = StateEditable
	s.touch()
	return nil
}

// MakeReadOnly transitions the session to read-only without ending it.
// Viewing stays allowed; mutations fail until MakeEditable.
func (s *Session) MakeReadOnly() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	s.state = StateReadOnly
	s.touch()
	return nil
}

// Insert adds text at the byte offset. Resets the idle clock.
func (s *Session) Insert(off int, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.state == StateReadOnly {
		return amErrors.ReadOnlyError{Op: "insert"}
	}
	if err := s.buf.InsertAt(off, p); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Delete removes count bytes at the offset. Resets the idle clock.
func (s *Session) Delete(off, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.state == StateReadOnly {
		return amErrors.ReadOnlyError{Op: "delete"}
	}
	if err := s.buf.DeleteAt(off, count); err != nil {
		return err
	}
	s.touch()
	return nil
}

// View passes the current contents to fn. Allowed in read-only mode;
// still counts as activity for the idle timer.
func (s *Session) View(fn func(p []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if err := s.buf.View(fn); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Len returns the note length in bytes.
func (s *Session) Len() int {
	return s.buf.Len()
}

// Blur masks the buffer while the editing surface loses focus. Only
// meaningful with stealth enabled.
func (s *Session) Blur() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.stealth == nil {
		return amErrors.StateError{Op: "obfuscate", State: "stealth encryption is disabled"}
	}
	return s.stealth.Obfuscate(s.buf)
}

// Focus restores plaintext for editing after a Blur.
func (s *Session) Focus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.stealth == nil {
		return amErrors.StateError{Op: "reveal", State: "stealth encryption is disabled"}
	}
	if err := s.stealth.Reveal(s.buf); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Save seals the current contents under password and returns the
// container bytes. It holds the session lock for the full KDF and AEAD
// work, so a timer-triggered wipe cannot interleave: a save that
// reached the lock completes before the wipe proceeds, and one that did
// not fails with ErrSessionEnding. Save changes no state and resets no
// timer.
func (s *Session) Save(password []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return nil, err
	}

	masked := s.buf.Obfuscated()
	if masked {
		if err := s.stealth.Reveal(s.buf); err != nil {
			return nil, err
		}
	}

	var sealed []byte
	var sealErr error
	if err := s.buf.View(func(p []byte) {
		sealed, sealErr = s.codec.Seal(p, password)
	}); err != nil {
		return nil, err
	}

	if masked {
		if err := s.stealth.Obfuscate(s.buf); err != nil {
			return nil, err
		}
	}
	return sealed, sealErr
}

// SaveFile seals and writes the container to path atomically.
func (s *Session) SaveFile(path string, password []byte) error {
	sealed, err := s.Save(password)
	if err != nil {
		return err
	}
	return container.WriteFile(container.NormalizePath(path), sealed)
}

// Exit requests termination and blocks until the wipe has completed.
func (s *Session) Exit() {
	s.Terminate(ReasonExit)
}

// Terminate drives the wipe-and-exit sequence exactly once: enter
// Terminating, bypass obfuscation, wipe the buffer, reach Terminated,
// close Done. Subsequent calls (second timer, signal handler, deferred
// guard hook) block until the first completes and then return.
func (s *Session) Terminate(reason Reason) {
	s.terminate.Do(func() {
		s.mu.Lock()
		s.state = StateTerminating
		s.reason = reason
		// Obfuscation state is irrelevant now; Wipe zeroes the backing
		// region either way.
		s.buf.Wipe()
		s.state = StateTerminated
		s.mu.Unlock()

		close(s.stopTimer)
		s.logger.Debug("session terminated: %s", reason)
		close(s.done)
	})
	<-s.done
}

// watchTimers runs the one-shot TTL alarm and the recurring idle check
// in a single goroutine. Whichever condition fires first wins; if both
// expire in the same tick the outcome is identical, so the ordering is
// deliberately unspecified.
func (s *Session) watchTimers() {
	var ttlC <-chan time.Time
	if s.ttl > 0 {
		timer := time.NewTimer(s.ttl)
		defer timer.Stop()
		ttlC = timer.C
	}

	var idleC <-chan time.Time
	if s.idle > 0 {
		ticker := time.NewTicker(idlePollInterval(s.idle))
		defer ticker.Stop()
		idleC = ticker.C
	}

	for {
		select {
		case <-ttlC:
			s.Terminate(ReasonTTL)
			return
		case <-idleC:
			if s.idleExpired() {
				s.Terminate(ReasonIdle)
				return
			}
		case <-s.stopTimer:
			return
		}
	}
}

func (s *Session) idleExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) >= s.idle
}

// idlePollInterval keeps the idle check responsive without busy
// polling: a tenth of the window, clamped to [10ms, 1s].
func idlePollInterval(idle time.Duration) time.Duration {
	interval := idle / 10
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}
	return interval
}
