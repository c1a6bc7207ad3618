package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the static connection/configuration blob read once at process
// start. It lives in <config dir>/config.yaml (or config.toml).
type Config struct {
	Store  StoreConfig  `yaml:"store" toml:"store" json:"store"`
	Server ServerConfig `yaml:"server" toml:"server" json:"server"`
	Log    LogConfig    `yaml:"log" toml:"log" json:"log"`
	TUI    TUIConfig    `yaml:"tui" toml:"tui" json:"tui"`

	// Path is the file the config was read from ("" when defaults only).
	Path string `yaml:"-" toml:"-" json:"path,omitempty"`
}

type StoreConfig struct {
	// Backend is "sqlite" (local file) or "remote" (a `taskdeck serve` endpoint).
	Backend  string `yaml:"backend" toml:"backend" json:"backend"`
	Path     string `yaml:"path" toml:"path" json:"path,omitempty"`
	Endpoint string `yaml:"endpoint" toml:"endpoint" json:"endpoint,omitempty"`
	APIKey   string `yaml:"apiKey" toml:"apiKey" json:"apiKey,omitempty"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr" toml:"addr" json:"addr"`
	APIKey string `yaml:"apiKey" toml:"apiKey" json:"apiKey,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	// File receives logs while the TUI owns the terminal.
	File string `yaml:"file" toml:"file" json:"file,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `yaml:"glyphs" toml:"glyphs" json:"glyphs,omitempty"`
}

var configFileNames = []string{"config.yaml", "config.yml", "config.toml"}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskdeck).
	if v := strings.TrimSpace(os.Getenv("TASKDECK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskdeck"), nil
}

func DefaultConfig() (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(dir, "taskdeck.sqlite"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "taskdeck.log"),
		},
		TUI: TUIConfig{
			Glyphs: "unicode",
		},
	}, nil
}

// LoadConfig reads path (or the first config file found in ConfigDir when path
// is empty) over the defaults, then applies TASKDECK_* environment overrides.
// A missing default config file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return Config{}, err
		}
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Path = path
	}

	applyConfigEnv(&cfg)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendSQLite
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file type: %s", path)
	}
	return nil
}

func applyConfigEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TASKDECK_STORE")); v != "" {
		cfg.Store.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDECK_STORE_PATH")); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDECK_ENDPOINT")); v != "" {
		cfg.Store.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDECK_API_KEY")); v != "" {
		cfg.Store.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDECK_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("config: store.path is required for the sqlite backend")
		}
	case BackendRemote:
		if strings.TrimSpace(c.Store.Endpoint) == "" {
			return errors.New("config: store.endpoint is required for the remote backend")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q (expected %s|%s)", c.Store.Backend, BackendSQLite, BackendRemote)
	}
	return nil
}

// Redacted hides credentials for display.
func (c Config) Redacted() Config {
	if c.Store.APIKey != "" {
		c.Store.APIKey = "********"
	}
	if c.Server.APIKey != "" {
		c.Server.APIKey = "********"
	}
	return c
}
