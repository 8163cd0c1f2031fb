// Package config loads server configuration from a TOML file with
// environment overrides. A .env file in the working directory is read
// first so local setups can keep secrets out of the shell profile.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Models   ModelsConfig   `toml:"models"`
	Judge    JudgeConfig    `toml:"judge"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ModelsConfig struct {
	Dir           string `toml:"dir"`
	ForceFallback bool   `toml:"force_fallback"`
}

type JudgeConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: "127.0.0.1", Port: 6143},
		Database: DatabaseConfig{Path: "oversite.db"},
		Models:   ModelsConfig{Dir: "models"},
		Judge:    JudgeConfig{Model: "gemini-2.0-flash"},
	}
}

// Load builds the configuration: defaults, then the TOML file at path
// (skipped when path is empty or absent), then environment variables.
func Load(path string) (Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OVERSITE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("OVERSITE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("OVERSITE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("OVERSITE_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("OVERSITE_FORCE_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Models.ForceFallback = b
		}
	}
	if v := os.Getenv("OVERSITE_JUDGE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Judge.Enabled = b
		}
	}
	if v := os.Getenv("OVERSITE_JUDGE_MODEL"); v != "" {
		c.Judge.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Judge.APIKey = v
	}
}

// ListenAddr formats the host:port pair the server binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Addr, c.Server.Port)
}
