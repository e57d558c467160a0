package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Wiki        WikiConfig        `yaml:"wiki"`
	Render      RenderConfig      `yaml:"render"`
	RenderCache RenderCacheConfig `yaml:"render_cache"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Wiki.Validate(); err != nil {
		return err
	}
	return c.RenderCache.Validate()
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

// WikiConfig locates the content tree and the catalog artifact.
type WikiConfig struct {
	// Root is the content directory ("Docs" in a classic layout).
	Root string `yaml:"root"`
	// CatalogPath is where the catalog JSON is cached. It is never
	// refreshed automatically; delete it or run "catalog --rebuild".
	CatalogPath string `yaml:"catalog_path"`
	// Watch enables live reload notifications over SSE.
	Watch bool `yaml:"watch"`
}

// Validate validates the wiki configuration.
func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.CatalogPath, validation.Required),
	)
}

// RenderConfig controls markdown rendering.
type RenderConfig struct {
	HardWraps bool `yaml:"hard_wraps"`
	SafeMode  bool `yaml:"safe_mode"`
	Math      bool `yaml:"math"`
}

// RenderCacheConfig holds the SQLite render cache settings.
type RenderCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the render cache configuration.
func (c *RenderCacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
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
		Wiki: WikiConfig{
			Root:        "./Docs",
			CatalogPath: "Content.json",
			Watch:       true,
		},
		Render: RenderConfig{
			HardWraps: true,
			Math:      true,
		},
		RenderCache: RenderCacheConfig{
			Enabled: true,
			Path:    "./sever.db",
		},
	}
}
