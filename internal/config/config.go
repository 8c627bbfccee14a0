package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config location.
const EnvPath = "BOOKFINDER_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "bookfinder.yaml"

var (
	once     sync.Once
	instance *Config

	validate = validator.New()
)

// ComponentConfig holds the network settings a service listens on.
type ComponentConfig struct {
	Protocol string `yaml:"protocol" validate:"omitempty,oneof=http https"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=0,max=65535"`
	Debug    bool   `yaml:"debug"`
}

// OpenLibraryConfig describes the upstream catalog API.
type OpenLibraryConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	CoversURL     string        `yaml:"covers_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"min=0"`
	Burst         int           `yaml:"burst" validate:"min=1"`
	UserAgent     string        `yaml:"user_agent"`
}

// SearchConfig tunes the search controller.
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`
	PageSize int           `yaml:"page_size" validate:"min=1,max=100"`
}

// HealthConfig is the gRPC health endpoint of the web adapter.
type HealthConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=0,max=65535"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig selects the logrus level, formatter and an optional log file.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	JSON  bool   `yaml:"json"`
	Path  string `yaml:"path"`
}

// CLIConfig holds settings for the terminal client (not a service).
type CLIConfig struct {
	Debug       bool   `yaml:"debug"`
	HistoryFile string `yaml:"history_file"`
	GatewayURL  string `yaml:"gateway_url" validate:"omitempty,url"`
}

// Config is the root of bookfinder.yaml.
type Config struct {
	OpenLibrary OpenLibraryConfig `yaml:"openlibrary"`
	Search      SearchConfig      `yaml:"search"`
	WebAdapter  ComponentConfig   `yaml:"web_adapter"`
	Health      HealthConfig      `yaml:"health"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
	CLI         CLIConfig         `yaml:"cli"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		OpenLibrary: OpenLibraryConfig{
			BaseURL:       "https://openlibrary.org",
			CoversURL:     "https://covers.openlibrary.org",
			Timeout:       10 * time.Second,
			RatePerSecond: 3,
			Burst:         3,
			UserAgent:     "bookfinder/1.0",
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
			PageSize: 15,
		},
		WebAdapter: ComponentConfig{Protocol: "http", Host: "localhost", Port: 8080},
		Health:     HealthConfig{Host: "localhost", Port: 50080},
		Metrics:    MetricsConfig{Enabled: true},
		Log:        LogConfig{Level: "info"},
		CLI:        CLIConfig{HistoryFile: ".bookfinder_history", GatewayURL: "http://localhost:8080"},
	}
}

// Get returns the process-wide configuration (singleton). The file is read
// from $BOOKFINDER_CONFIG or ./bookfinder.yaml; a missing file yields defaults.
func Get() *Config {
	once.Do(func() {
		cfg, err := Load(Path(""))
		if err != nil {
			logrus.Fatalf("[CONFIG ERROR] %v", err)
		}
		instance = &cfg
	})
	return instance
}

// Path resolves the config location: an explicit override first, then
// $BOOKFINDER_CONFIG, then ./bookfinder.yaml.
func Path(override string) string {
	if override != "" {
		return override
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and validates the config at path. Values absent from the file
// keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return ErrInvalid(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.WebAdapter.Port != 0 && c.WebAdapter.Port == c.Health.Port && c.WebAdapter.Host == c.Health.Host {
		return ErrInvalid("web_adapter and health must not share an address")
	}
	return nil
}

type invalidErr string

func (e invalidErr) Error() string { return "invalid config: " + string(e) }

// ErrInvalid builds a validation error.
func ErrInvalid(msg string) error { return invalidErr(msg) }

// IsInvalid reports whether err came from validation.
func IsInvalid(err error) bool {
	var ie invalidErr
	return errors.As(err, &ie)
}

// Address returns host:port (handy for gRPC and net.Listen).
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FullURL returns protocol://host:port.
func (c ComponentConfig) FullURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// Address returns host:port of the health endpoint.
func (h HealthConfig) Address() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}
