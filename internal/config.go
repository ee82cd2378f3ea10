package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/onemd/internal/storage"
	"github.com/starford/onemd/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var appIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Watch    WatchConfig       `yaml:"watch"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Autosave.Validate(); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The bridge is meant for the
// local editor, so Host defaults to the loopback address.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig controls where and how notebooks are stored.
type StorageConfig struct {
	// AppID names the directory under the platform data dir.
	AppID string `yaml:"app_id"`
	// DataDir replaces the platform data dir when set.
	DataDir      string `yaml:"data_dir"`
	AtomicWrites bool   `yaml:"atomic_writes"`
	ConfinePaths bool   `yaml:"confine_paths"`
	DefaultNote  string `yaml:"default_note"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppID, validation.Required, validation.Match(appIDRe)),
	)
}

// Resolver returns the root resolver described by the configuration.
func (c *StorageConfig) Resolver() storage.RootResolver {
	return storage.RootResolver{AppID: c.AppID, DataDir: c.DataDir}
}

// AutosaveConfig holds the draft debounce delay.
type AutosaveConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delay, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
	)
}

// WatchConfig controls the change watcher behind the SSE stream.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Ignore       []string      `yaml:"ignore"`
	TreeThrottle time.Duration `yaml:"tree_throttle"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Ignore, validation.Each(validation.By(validGlob))),
		validation.Field(&c.TreeThrottle, validation.Min(time.Duration(0))),
	)
}

func validGlob(v any) error {
	p, _ := v.(string)
	if !doublestar.ValidatePattern(p) {
		return errors.New("invalid glob pattern")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, fine on loopback.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 7420,
			},
		},
		Storage: StorageConfig{
			AppID:        storage.DefaultAppID,
			AtomicWrites: true,
			ConfinePaths: true,
			DefaultNote:  storage.DefaultNoteContent,
		},
		Autosave: AutosaveConfig{
			Delay: 500 * time.Millisecond,
		},
		Watch: WatchConfig{
			Enabled:      true,
			Ignore:       append([]string(nil), watch.DefaultIgnore...),
			TreeThrottle: time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
