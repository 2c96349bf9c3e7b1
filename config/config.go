// Package config loads service configuration from layered YAML files with
// environment overrides. Later files override earlier ones; environment
// variables override everything, so secrets never have to live in a file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chroma   ChromaConfig   `yaml:"chroma"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	GitHub   GitHubConfig   `yaml:"github"`
	Docgen   DocgenConfig   `yaml:"docgen"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port        int      `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type ChromaConfig struct {
	Host       string        `yaml:"host" default:"localhost" validate:"required"`
	Port       int           `yaml:"port" default:"8000" validate:"min=1,max=65535"`
	Collection string        `yaml:"collection" default:"problem_statements" validate:"required"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
}

type EmbedderConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model" default:"all-MiniLM-L6-v2"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size" default:"32"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model" default:"gemini-1.5-flash"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout" default:"60s"`
}

type GitHubConfig struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`
}

// DocgenConfig points at the optional document generation sidecar the API
// proxies to.
type DocgenConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration: .env file if present, then the given YAML files
// in order (later overriding earlier), then struct defaults for whatever is
// still zero, then environment overrides, then validation.
func Load(paths ...string) (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := mergeFiles(cfg, paths); err != nil {
		return nil, err
	}
	defaults.SetDefaults(cfg)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFiles deep-merges each YAML file into the target. The YAML parser
// alone would override whole top-level sections, hence mergo.
func mergeFiles(target *Config, paths []string) error {
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		layer := reflect.New(reflect.TypeOf(target).Elem()).Interface()
		if err := yaml.Unmarshal(raw, layer); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := mergo.Merge(target, layer, mergo.WithOverride); err != nil {
			return fmt.Errorf("config: merge %s: %w", path, err)
		}
	}
	return nil
}

// applyEnv overrides selected fields from the environment.
func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(&cfg.Server.Port, "PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.CORSOrigins = origins
	}

	setString(&cfg.Chroma.Host, "CHROMA_HOST")
	setInt(&cfg.Chroma.Port, "CHROMA_PORT")
	setString(&cfg.Chroma.Collection, "CHROMA_COLLECTION")

	setString(&cfg.Embedder.Endpoint, "EMBEDDER_URL")
	setString(&cfg.Embedder.Model, "EMBEDDER_MODEL")

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")

	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")

	setString(&cfg.Docgen.URL, "DOCGEN_URL")

	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("config: could not validate: %w", err)
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
