// Package guard applies process-wide anti-forensics hardening and
// guarantees the wipe hook runs on every termination path.
//
// Harden is called once at startup to disable core dumps; a failure is
// a degraded-security warning, not a fatal error, so the tool stays
// usable in unprivileged environments. The registered terminate hook is
// driven from three directions: signal delivery, a deferred call in the
// program's run function (covering panics), and the session's own
// shutdown; the hook runs at most once.
package guard

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Laticee/amnesia/internal/logging"
)

// Status reports the hardening achieved at startup.
type Status struct {
	CoreDumpsDisabled bool
	Err               error
}

// Guard owns the process hardening state and the terminate hook.
// Status is read-only after Harden; only the hook fields need locking.
type Guard struct {
	status Status
	logger *logging.Logger

	mu      sync.Mutex
	hook    func()
	ran     bool
	signals chan os.Signal
	stop    chan struct{}
}

// Harden disables core dump generation for the process. Invoked once at
// startup; failure is logged as a degraded-security warning.
func Harden(logger *logging.Logger) *Guard {
	g := &Guard{logger: logger}
	if err := disableCoreDumps(); err != nil {
		g.status = Status{CoreDumpsDisabled: false, Err: err}
		logger.Warn("failed to disable core dumps: %v (crash files may contain note plaintext)", err)
	} else {
		g.status = Status{CoreDumpsDisabled: true}
		logger.Debug("core dumps disabled")
	}
	return g
}

// Status returns the hardening outcome for degraded-security reporting.
func (g *Guard) Status() Status {
	return g.status
}

// CoreDumpLimit reports the process's current core file size limit.
// Used by doctor to verify hardening took effect.
func CoreDumpLimit() (uint64, error) {
	return coreDumpLimit()
}

// OnTerminate registers the hook to run before the process exits. The
// hook must be idempotent-friendly in effect (wiping twice is a no-op)
// but the guard itself also ensures it runs at most once.
func (g *Guard) OnTerminate(hook func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hook = hook
}

// RunHook executes the registered terminate hook exactly once. Safe to
// call from defers, signal handlers and the session teardown alike.
func (g *Guard) RunHook() {
	g.mu.Lock()
	if g.ran || g.hook == nil {
		g.mu.Unlock()
		return
	}
	g.ran = true
	hook := g.hook
	g.mu.Unlock()
	hook()
}

// Arm installs signal handling so SIGINT, SIGTERM and SIGHUP run the
// terminate hook before exiting. Must be called after OnTerminate.
func (g *Guard) Arm() {
	g.mu.Lock()
	if g.signals != nil {
		g.mu.Unlock()
		return
	}
	g.signals = make(chan os.Signal, 1)
	g.stop = make(chan struct{})
	g.mu.Unlock()

	signal.Notify(g.signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case sig := <-g.signals:
			g.logger.Warn("received %s, wiping session", sig)
			g.RunHook()
			os.Exit(1)
		case <-g.stop:
		}
	}()
}

// Disarm stops signal handling without running the hook. Used by tests
// and by orderly shutdown after the hook has already run.
func (g *Guard) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.signals == nil {
		return
	}
	signal.Stop(g.signals)
	close(g.stop)
	g.signals = nil
}
