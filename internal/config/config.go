package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "ZENOTES"
	defaultDataDir         = ".zenotes"
	defaultHTTPAddress     = "127.0.0.1:7070"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultTokenTTLMinutes = 24 * 60
	defaultAutosaveDelayMS = 1000
	defaultGeminiModel     = "gemini-1.5-flash"
	defaultGeminiEndpoint  = "https://generativelanguage.googleapis.com/"
	defaultGeminiVersion   = "v1beta"
	defaultGeminiTimeout   = 30

	// StorageBackendFS keeps each storage key in its own JSON file.
	StorageBackendFS = "fs"
	// StorageBackendSQLite keeps storage keys in a SQLite key/value table.
	StorageBackendSQLite = "sqlite"
)

// AppConfig captures runtime configuration for the CLI and the local API.
type AppConfig struct {
	DataDir        string
	StorageBackend string
	DatabasePath   string
	HTTPAddress    string
	LogLevel       string
	LogFormat      string
	SigningSecret  string
	TokenTTL       time.Duration
	AutosaveDelay  time.Duration
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	GeminiVersion  string
	GeminiTimeout  time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("data.dir", defaultDataDir)
	configViper.SetDefault("storage.backend", StorageBackendFS)
	configViper.SetDefault("database.path", "")
	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("editor.autosave_delay_ms", defaultAutosaveDelayMS)
	configViper.SetDefault("gemini.model", defaultGeminiModel)
	configViper.SetDefault("gemini.endpoint", defaultGeminiEndpoint)
	configViper.SetDefault("gemini.api_version", defaultGeminiVersion)
	configViper.SetDefault("gemini.timeout_seconds", defaultGeminiTimeout)

	// The summarizer has always read GEMINI_API_KEY; keep honoring it.
	_ = configViper.BindEnv("gemini.api_key", envPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		DataDir:        strings.TrimSpace(configViper.GetString("data.dir")),
		StorageBackend: strings.ToLower(strings.TrimSpace(configViper.GetString("storage.backend"))),
		DatabasePath:   strings.TrimSpace(configViper.GetString("database.path")),
		HTTPAddress:    configViper.GetString("http.address"),
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		AutosaveDelay:  time.Duration(configViper.GetInt("editor.autosave_delay_ms")) * time.Millisecond,
		GeminiAPIKey:   strings.TrimSpace(configViper.GetString("gemini.api_key")),
		GeminiModel:    configViper.GetString("gemini.model"),
		GeminiEndpoint: configViper.GetString("gemini.endpoint"),
		GeminiVersion:  configViper.GetString("gemini.api_version"),
		GeminiTimeout:  time.Duration(configViper.GetInt("gemini.timeout_seconds")) * time.Second,
	}
	if cfg.DatabasePath == "" && cfg.DataDir != "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "zenotes.db")
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data.dir is required")
	}
	switch c.StorageBackend {
	case StorageBackendFS:
	case StorageBackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageBackendFS, StorageBackendSQLite, c.StorageBackend)
	}
	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("editor.autosave_delay_ms must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	return nil
}
