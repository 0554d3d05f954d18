package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ticktock/internal/store"
)

// Schema variants for the persisted collection.
const (
	SchemaTasks = "tasks"
	SchemaFlags = "flags"
)

// Config models ticktock.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Storage struct {
		// Dir holds the JSON documents, relative to the workspace.
		Dir    string `yaml:"dir"`
		Schema string `yaml:"schema"`
	} `yaml:"storage"`
	Auth struct {
		Email         string `yaml:"email"`
		Password      string `yaml:"password"`
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with ticktock config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("config.storage.dir is required")
	}
	if c.Storage.Schema != SchemaTasks && c.Storage.Schema != SchemaFlags {
		return fmt.Errorf("config.storage.schema must be %q or %q", SchemaTasks, SchemaFlags)
	}
	if c.Auth.Email == "" || c.Auth.Password == "" {
		return fmt.Errorf("config.auth.email and config.auth.password are required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("config.auth.token_ttl_hours must be positive")
	}
	return nil
}

// EntriesPath is the task-based collection document for a workspace.
func (c *Config) EntriesPath(workspace string) string {
	return filepath.Join(workspace, c.Storage.Dir, store.FileName)
}

// FlaggedPath is the status-flagged collection document for a workspace.
func (c *Config) FlaggedPath(workspace string) string {
	return filepath.Join(workspace, c.Storage.Dir, store.FlaggedFileName)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "ticktock.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api

storage:
  dir: data
  schema: tasks

auth:
  email: tentwenty@demo.com
  password: password123
  # Set via TICKTOCK_JWT_SECRET when empty.
  jwt_secret: ""
  token_ttl_hours: 12
`
