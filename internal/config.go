package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/vaultsync/internal/routing"
	"github.com/halvard/vaultsync/internal/sync"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Remote RemoteConfig      `yaml:"remote"`
	Sync   SyncConfig        `yaml:"sync"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
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

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the vault location and note placement settings.
type VaultConfig struct {
	Path string `yaml:"path"`
	// Strategy decides where pulled notes land: "active-only" puts every
	// record in the canonical folder, "split" keeps the legacy
	// bookmarks/authors layout.
	Strategy        string `yaml:"strategy"`
	CanonicalFolder string `yaml:"canonical_folder"`
	BookmarksFolder string `yaml:"bookmarks_folder"`
	AuthorsFolder   string `yaml:"authors_folder"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.Strategy == "" {
		c.Strategy = string(sync.StrategyActiveOnly)
	}
	if c.CanonicalFolder == "" {
		c.CanonicalFolder = "notes"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Strategy,
			validation.In(string(sync.StrategyActiveOnly), string(sync.StrategySplit))),
	)
}

// Folders returns the destination folders in sync form.
func (c *VaultConfig) Folders() sync.Folders {
	return sync.Folders{
		Canonical: c.CanonicalFolder,
		Bookmarks: c.BookmarksFolder,
		Authors:   c.AuthorsFolder,
	}
}

// RemoteConfig holds the media-store connection and routing coordinates.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// SourceID and ProfileIndex address the store partition this vault
	// syncs against. A ProfileIndex below 1 means unset.
	SourceID     string `yaml:"source_id"`
	ProfileIndex int    `yaml:"profile_index"`
	// Alignment rewrites generic placeholder source ids to the indexed
	// form; Guard blocks mutating requests whose coordinates disagree.
	Alignment     bool   `yaml:"alignment"`
	Guard         bool   `yaml:"guard"`
	GenericPrefix string `yaml:"generic_prefix"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.GenericPrefix == "" {
		c.GenericPrefix = routing.DefaultGenericPrefix
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
	)
}

// RoutingContext returns the startup routing context described by this
// section. The persisted context in the state index, when present, takes
// precedence over it.
func (c *RemoteConfig) RoutingContext() routing.Context {
	sourceID := c.SourceID
	if sourceID == "" {
		sourceID = routing.DefaultToken
	}
	return routing.Context{
		SourceID:         sourceID,
		ProfileIndex:     c.ProfileIndex,
		AlignmentEnabled: c.Alignment,
		GuardEnabled:     c.Guard,
		GenericPrefix:    c.GenericPrefix,
	}
}

// SyncConfig tunes the pull and push passes.
type SyncConfig struct {
	PageSize        int  `yaml:"page_size"`
	MaxWritten      int  `yaml:"max_written"`
	PushMax         int  `yaml:"push_max"`
	DeleteAfterPush bool `yaml:"delete_after_push"`
	DebounceMS      int  `yaml:"debounce_ms"`
	Watch           bool `yaml:"watch"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageSize, validation.Min(0), validation.Max(500)),
		validation.Field(&c.MaxWritten, validation.Min(0)),
		validation.Field(&c.PushMax, validation.Min(0)),
		validation.Field(&c.DebounceMS, validation.Min(0)),
	)
}

// Options returns sync options; zero values fall back to Syncer defaults.
func (c *SyncConfig) Options(strategy string, folders sync.Folders) sync.Options {
	return sync.Options{
		Strategy:        sync.Strategy(strategy),
		Folders:         folders,
		PageSize:        c.PageSize,
		MaxWritten:      c.MaxWritten,
		PushMax:         c.PushMax,
		DeleteAfterPush: c.DeleteAfterPush,
		Debounce:        time.Duration(c.DebounceMS) * time.Millisecond,
	}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds control API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:            "./vault",
			Strategy:        string(sync.StrategyActiveOnly),
			CanonicalFolder: "notes",
			BookmarksFolder: "bookmarks",
			AuthorsFolder:   "authors",
		},
		Remote: RemoteConfig{
			BaseURL:       "http://localhost:8000",
			SourceID:      routing.DefaultToken,
			GenericPrefix: routing.DefaultGenericPrefix,
		},
		Sync: SyncConfig{
			PageSize:   50,
			MaxWritten: 500,
			PushMax:    200,
			DebounceMS: 750,
			Watch:      true,
		},
		SQLite: SQLiteConfig{
			Path: "./vaultsync.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
