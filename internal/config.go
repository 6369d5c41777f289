package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notas/internal/notes"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Backend kinds.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Local storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Identifier schemes for notes created through the API server.
const (
	IDSchemeUID  = "uid"
	IDSchemeUUID = "uuid"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	Search  SearchConfig      `yaml:"search"`
	Server  ServerConfig      `yaml:"server"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
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

// BackendConfig selects where notes live.
type BackendConfig struct {
	Kind   string       `yaml:"kind"`
	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
}

// Validate validates the backend selection and the section it points at.
func (c *BackendConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(BackendLocal, BackendRemote)),
	); err != nil {
		return err
	}
	if c.Kind == BackendRemote {
		return c.Remote.Validate()
	}
	return c.Local.Validate()
}

// LocalConfig holds device-storage settings.
//
// Driver "sqlite" keeps the blob in a key-value table at Path; driver
// "file" keeps it as a JSON file inside the directory Path. Watch reloads
// the store when the file changes on disk (file driver only).
type LocalConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Key    string `yaml:"key"`
	Watch  bool   `yaml:"watch"`
}

// Validate validates the local storage configuration.
func (c *LocalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverFile)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.Watch, validation.When(c.Driver != DriverFile,
			validation.Empty.Error("watch requires the file driver"))),
	)
}

// RemoteConfig holds the REST backend settings.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// SearchConfig selects the store's search strategy ("local" or "backend").
type SearchConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(string(notes.SearchLocal), string(notes.SearchBackend))),
	)
}

// ServerConfig holds settings of the notes API server.
type ServerConfig struct {
	IDScheme           string        `yaml:"id_scheme"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RateLimitRPS       float64       `yaml:"rate_limit_rps"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	EventsThrottle     time.Duration `yaml:"events_throttle"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IDScheme, validation.In(IDSchemeUID, IDSchemeUUID)),
		validation.Field(&c.RateLimitRPS, validation.Min(0.0)),
		validation.Field(&c.RateLimitBurst, validation.Min(0)),
		validation.Field(&c.EventsThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the API server.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
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
				Port: 8000,
			},
		},
		Backend: BackendConfig{
			Kind: BackendLocal,
			Local: LocalConfig{
				Driver: DriverSQLite,
				Path:   "./notas.db",
				Key:    "@NotesApp:notes",
			},
			Remote: RemoteConfig{
				Timeout: 10 * time.Second,
			},
		},
		Search: SearchConfig{
			Mode: string(notes.SearchLocal),
		},
		Server: ServerConfig{
			IDScheme:           IDSchemeUUID,
			CORSAllowedOrigins: []string{"*"},
			RateLimitBurst:     20,
			EventsThrottle:     2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
