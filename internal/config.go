package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/review"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Output  OutputConfig      `yaml:"output"`
	Audit   AuditConfig       `yaml:"audit"`
	Quality QualityConfig     `yaml:"quality"`
	Review  ReviewConfig      `yaml:"review"`
	Posts   []string          `yaml:"posts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	return c.Review.Validate()
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

// HTTPConfig holds preview server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the source vault settings.
type VaultConfig struct {
	Path        string   `yaml:"path"`
	BlockedTags []string `yaml:"blocked_tags"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OutputConfig holds the packaged content destination.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuditConfig holds the quality-audit database settings.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the audit configuration.
func (c *AuditConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// QualityConfig holds the quality gate settings. An empty APIKey switches
// the gate to auto-pass so packaging works offline.
type QualityConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MinScore       int    `yaml:"min_score"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the quality configuration.
func (c *QualityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinScore, validation.Min(1), validation.Max(10)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// ReviewConfig holds the review generator settings.
type ReviewConfig struct {
	Model     string `yaml:"model"`
	Threshold int    `yaml:"threshold"`
}

// Validate validates the review configuration.
func (c *ReviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Threshold, validation.Min(1), validation.Max(10)),
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		Output: OutputConfig{
			Path: "./output",
		},
		Audit: AuditConfig{
			Path: "./vaultpack.db",
		},
		Quality: QualityConfig{
			Model:          quality.DefaultModel,
			MinScore:       quality.DefaultMinScore,
			TimeoutSeconds: 30,
		},
		Review: ReviewConfig{
			Model:     review.DefaultModel,
			Threshold: review.DefaultThreshold,
		},
	}
}
