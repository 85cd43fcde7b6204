// Package config loads the amnesia configuration file and carries the
// runtime configuration handed to every command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	amErrors "github.com/Laticee/amnesia/internal/errors"
	"github.com/Laticee/amnesia/internal/logging"
)

// DefaultIdleTimeout applies when the config file and flags are silent.
const DefaultIdleTimeout = 5 * time.Minute

// Config is the runtime configuration shared across commands.
type Config struct {
	Path           string // config file path; empty means the default location
	Logger         *logging.Logger
	NonInteractive bool
	Options        Options
}

// Options are the recognized configuration file settings.
type Options struct {
	// TTL is the absolute self-destruct deadline. Zero disables it.
	TTL Duration `yaml:"ttl"`
	// IdleTimeout wipes the session after this much inactivity.
	IdleTimeout Duration `yaml:"idle_timeout"`
	// StealthEncryption masks the in-RAM buffer while idle.
	StealthEncryption bool `yaml:"stealth_encryption"`
}

// Duration wraps time.Duration so YAML values like "5m" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must not be negative", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultOptions returns the settings used when no file exists.
func DefaultOptions() Options {
	return Options{
		TTL:               0,
		IdleTimeout:       Duration(DefaultIdleTimeout),
		StealthEncryption: false,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "amnesia", "config.yaml"), nil
}

const defaultFileTemplate = `# amnesia configuration file

# Absolute self-destruct deadline for a session. After this much time
# the note is wiped and the process exits, regardless of activity.
# Comment out to disable.
# ttl: 10m

# Wipe the session after this much time without input.
idle_timeout: 5m

# Mask the in-RAM buffer with a volatile-only key while idle.
# Note content is only ever accessible during the current session.
stealth_encryption: false
`

// Load reads the configuration file. A missing file is not an error:
// defaults apply and, at the default location only, a commented
// template is written for next time.
func (c *Config) Load() error {
	c.Options = DefaultOptions()

	path := c.Path
	usingDefault := path == ""
	if usingDefault {
		p, err := DefaultPath()
		if err != nil {
			c.Logger.Debug("no config directory available: %v", err)
			return nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if !usingDefault {
			return amErrors.UserError{
				Message:    fmt.Sprintf("Config file not found: %s", path),
				Suggestion: "Check the --config path or omit it to use the default location",
			}
		}
		c.writeTemplate(path)
		return nil
	}
	if err != nil {
		return amErrors.UserError{
			Message:    "Failed to read config file",
			Suggestion: "Check file permissions on " + path,
			Err:        err,
		}
	}

	if err := yaml.Unmarshal(data, &c.Options); err != nil {
		return amErrors.UserError{
			Message:    fmt.Sprintf("Invalid config file %s: %v", path, err),
			Suggestion: "Fix the YAML syntax or delete the file to regenerate defaults",
			Err:        err,
		}
	}
	return nil
}

// writeTemplate drops a commented default config file. Best effort:
// a read-only config directory just means defaults next time too.
func (c *Config) writeTemplate(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		c.Logger.Debug("cannot create config directory: %v", err)
		return
	}
	if err := os.WriteFile(path, []byte(defaultFileTemplate), 0600); err != nil {
		c.Logger.Debug("cannot write default config: %v", err)
		return
	}
	c.Logger.Debug("wrote default config to %s", path)
}
