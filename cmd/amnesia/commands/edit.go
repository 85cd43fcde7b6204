package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/Laticee/amnesia/internal/config"
	"github.com/Laticee/amnesia/internal/container"
	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/guard"
	"github.com/Laticee/amnesia/internal/keychain"
	"github.com/Laticee/amnesia/internal/session"
	"github.com/Laticee/amnesia/internal/stealth"
)

type editorParams struct {
	path       string // note to load; empty starts blank
	ttl        time.Duration
	idle       time.Duration
	stealthOn  bool
	useKeyring bool
	readOnly   bool
}

// runEditor owns the whole session lifetime: hardening first, then the
// session, then the line-oriented surface until the session dies.
func runEditor(cfg *config.Config, p editorParams) error {
	g := guard.Harden(cfg.Logger)

	st, err := stealth.New(p.stealthOn)
	if err != nil {
		return amErrors.UserError{
			Message: "Failed to initialize stealth encryption",
			Err:     err,
		}
	}
	defer st.Close()

	opts := session.Options{
		TTL:         p.ttl,
		IdleTimeout: p.idle,
		Guard:       g,
		Logger:      cfg.Logger,
		Codec:       container.New(container.DefaultParams()),
	}
	if st.Enabled() {
		opts.Stealth = st
	}

	var sess *session.Session
	if p.path != "" {
		sess, err = loadSession(cfg, p, opts)
		if err != nil {
			return err
		}
		cfg.Logger.Info("loaded %s (read-only; use :rw to edit)", p.path)
	} else {
		sess = session.New(opts)
	}
	if p.readOnly && sess.State() != session.StateReadOnly {
		if err := sess.MakeReadOnly(); err != nil {
			return err
		}
	}

	// The guard hook wipes the session; the defer makes it run even if
	// the surface loop panics. Signals go through the same hook.
	defer g.RunHook()
	g.Arm()
	defer g.Disarm()

	if !sess.MemoryLocked() || !g.Status().CoreDumpsDisabled {
		cfg.Logger.Warn("running with degraded protections; see 'amnesia doctor'")
	}

	runSurface(cfg, sess, p)

	fmt.Fprintf(os.Stderr, "\namnesia: memory wiped (%s). Goodbye.\n", sess.Reason())
	return nil
}

func loadSession(cfg *config.Config, p editorParams, opts session.Options) (*session.Session, error) {
	data, err := container.ReadFile(p.path)
	if err != nil {
		return nil, amErrors.UserError{
			Message:    fmt.Sprintf("Cannot open note %s", p.path),
			Suggestion: "Check the file path",
			Err:        err,
		}
	}

	password, cached, err := resolvePassword(cfg, p)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(password)

	sess, err := session.Load(data, password, opts)
	if err != nil {
		if cached {
			// A stale keyring entry should not lock the user out.
			_ = keychain.Clear(p.path)
			cfg.Logger.Warn("cached password rejected, cleared keyring entry")
		}
		return nil, err
	}
	if p.useKeyring && !cached {
		if kerr := keychain.Store(p.path, string(password)); kerr != nil {
			cfg.Logger.Warn("could not cache password in keyring: %v", kerr)
		}
	}
	return sess, nil
}

func resolvePassword(cfg *config.Config, p editorParams) (password []byte, fromKeyring bool, err error) {
	if p.useKeyring {
		if cached, kerr := keychain.Lookup(p.path); kerr == nil {
			return []byte(cached), true, nil
		}
	}
	password, err = promptPassword(cfg, "Password: ", false)
	return password, false, err
}

// runSurface is the minimal line-oriented editing surface. It is the
// external collaborator of the session: every read and mutation goes
// through the controller, and it keeps no copy of the note.
func runSurface(cfg *config.Config, sess *session.Session, p editorParams) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		r := bufio.NewReader(os.Stdin)
		for {
			line, err := r.ReadString('\n')
			if len(line) > 0 {
				lines <- strings.TrimRight(line, "\r\n")
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-sess.Done():
			return
		case <-readErr:
			// EOF or closed stdin ends the session like an explicit exit.
			sess.Exit()
			return
		case line := <-lines:
			if quit := handleLine(cfg, sess, p, line); quit {
				sess.Exit()
				return
			}
		}
	}
}

// handleLine executes one surface command; returns true on :q.
func handleLine(cfg *config.Config, sess *session.Session, p editorParams, line string) bool {
	if !strings.HasPrefix(line, ":") {
		appendLine(cfg, sess, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case ":q":
		return true
	case ":p":
		if err := sess.View(func(content []byte) {
			fmt.Fprintln(os.Stdout, string(content))
		}); err != nil {
			cfg.Logger.Error("%v", err)
		}
	case ":w":
		saveNote(cfg, sess, p, strings.TrimSpace(arg))
	case ":ro":
		if err := sess.MakeReadOnly(); err != nil {
			cfg.Logger.Error("%v", err)
		} else {
			cfg.Logger.Info("note is now read-only")
		}
	case ":rw":
		if err := sess.MakeEditable(); err != nil {
			cfg.Logger.Error("%v", err)
		} else {
			cfg.Logger.Info("note is now editable")
		}
	case ":blur":
		if err := sess.Blur(); err != nil {
			cfg.Logger.Error("%v", err)
		}
	case ":focus":
		if err := sess.Focus(); err != nil {
			cfg.Logger.Error("%v", err)
		}
	case ":status":
		printStatus(sess, p)
	default:
		cfg.Logger.Error("unknown command %s", cmd)
	}
	return false
}

func appendLine(cfg *config.Config, sess *session.Session, line string) {
	text := line + "\n"
	if err := sess.Insert(sess.Len(), []byte(text)); err != nil {
		cfg.Logger.Error("%v", err)
	}
}

func saveNote(cfg *config.Config, sess *session.Session, p editorParams, path string) {
	if path == "" {
		cfg.Logger.Error("usage: :w <file>")
		return
	}

	password, err := promptPassword(cfg, "Password for save: ", true)
	if err != nil {
		cfg.Logger.Error("%v", err)
		return
	}
	defer memguard.WipeBytes(password)

	target := container.NormalizePath(path)
	if err := sess.SaveFile(path, password); err != nil {
		cfg.Logger.Error("save failed: %v", err)
		return
	}
	cfg.Logger.Info("saved as %s", target)

	if p.useKeyring {
		if err := keychain.Store(target, string(password)); err != nil {
			cfg.Logger.Warn("could not cache password in keyring: %v", err)
		}
	}
}

func printStatus(sess *session.Session, p editorParams) {
	fmt.Fprintf(os.Stderr, "state=%s bytes=%d locked=%t obfuscated=%t ttl=%s idle=%s\n",
		sess.State(), sess.Len(), sess.MemoryLocked(), sess.Obfuscated(),
		formatTimeout(p.ttl), formatTimeout(p.idle))
}

func formatTimeout(d time.Duration) string {
	if d == 0 {
		return "off"
	}
	return d.String()
}
