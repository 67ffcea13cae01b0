// Package config loads service configuration: defaults, then a TOML file,
// then environment variables (env wins). Loaded once at process start,
// validated eagerly, never mutated.
package config

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Google   GoogleConfig   `toml:"google"`
	Content  ContentConfig  `toml:"content"`
	Observer ObserverConfig `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

type ContentConfig struct {
	DatabaseURL string `toml:"database_url"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Gemini: GeminiConfig{Model: "gemini-flash-lite-latest"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "pdf-converter.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REFRESH_TOKEN"); v != "" {
		cfg.Google.RefreshToken = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Content.DatabaseURL = v
	}

	return cfg
}

// Validate checks the credentials the service cannot run without. A missing
// Gemini key is fatal at startup rather than a per-request 500; Google
// credentials must come as a complete pair or not at all.
func (c Config) Validate() error {
	var errs []error
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("missing GEMINI_API_KEY configuration"))
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together"))
	}
	return errors.Join(errs...)
}

// PublishEnabled reports whether the cloud-publish path is configured.
func (c Config) PublishEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
