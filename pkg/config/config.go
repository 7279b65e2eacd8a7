// Package config loads kb-analyzer settings from a .env file, an optional
// YAML file and environment variables. Commands apply their flags on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kb-analyzer/pkg/db"
)

// Storage backends.
const (
	BackendSupabase = db.BackendSupabase
	BackendMongo    = db.BackendMongo
)

// EnvConfigFile names the environment variable pointing at a YAML config file.
const EnvConfigFile = "KB_CONFIG"

// Validation errors.
var (
	ErrMissingAPIKey   = errors.New("OPENAI_API_KEY is required")
	ErrMissingSupabase = errors.New("SUPABASE_URL and SUPABASE_KEY are required")
	ErrMissingMongoURI = errors.New("MONGO_URI is required for the mongo backend")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)

// Supabase holds Supabase connection settings.
type Supabase struct {
	URL        string `yaml:"url"`
	Key        string `yaml:"key"`
	DBURL      string `yaml:"dbURL"`
	DBPassword string `yaml:"dbPassword"`
}

// OpenAI holds language model settings.
type OpenAI struct {
	APIKey  string `yaml:"key"`
	BaseURL string `yaml:"base"`
	Model   string `yaml:"model"`
}

// Mongo holds MongoDB settings.
type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Config is the merged configuration shared by every command.
type Config struct {
	Supabase       Supabase `yaml:"supabase"`
	OpenAI         OpenAI   `yaml:"openai"`
	Mongo          Mongo    `yaml:"mongo"`
	StorageBackend string   `yaml:"storage"`
	BindAddr       string   `yaml:"bindAddr"`
	LogLevel       string   `yaml:"logLevel"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		OpenAI:         OpenAI{Model: "gpt-4"},
		Mongo:          Mongo{Database: "kb_analyzer"},
		StorageBackend: BackendSupabase,
		BindAddr:       "0.0.0.0:5000",
		LogLevel:       "info",
	}
}

// Load merges defaults, the YAML file at path (or $KB_CONFIG when path is
// empty) and the environment, in increasing order of precedence. A .env file
// in the working directory is loaded into the environment first; variables
// already set are not overwritten.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Supabase.URL, "SUPABASE_URL")
	setString(&cfg.Supabase.Key, "SUPABASE_KEY")
	setString(&cfg.Supabase.DBURL, "SUPABASE_DB_URL")
	setString(&cfg.Supabase.DBPassword, "SUPABASE_DB_PASSWORD")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DB")
	setString(&cfg.StorageBackend, "STORAGE_BACKEND")
	setString(&cfg.BindAddr, "API_BIND_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// ValidateAnalyzer checks the settings needed to call the language model.
func (c *Config) ValidateAnalyzer() error {
	if c.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateStorage checks the settings of the selected storage backend.
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case BackendSupabase, "":
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return ErrMissingSupabase
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return ErrMissingMongoURI
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.StorageBackend)
	}
	return nil
}
