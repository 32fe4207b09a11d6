// Package config handles application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingValue is returned by Validate when a required setting is empty.
var ErrMissingValue = errors.New("config: missing required value")

// Config defines the structure for all application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	SODA     SODAConfig     `yaml:"soda"`
	Model    ModelConfig    `yaml:"model"`
	Server   ServerConfig   `yaml:"server"`
	Sample   SampleConfig   `yaml:"sample"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // Loaded from env
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a postgres:// URL usable by pgxpool and golang-migrate.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// SODAConfig holds the Socrata Open Data API settings.
type SODAConfig struct {
	Domain   string   `yaml:"domain"`
	AppToken string   `yaml:"-"` // Loaded from env
	PageSize int      `yaml:"page_size"`
	Timeout  Duration `yaml:"timeout"`
}

// ModelConfig controls feature preparation and training.
type ModelConfig struct {
	ArtifactDir     string   `yaml:"artifact_dir"`
	MigrationsDir   string   `yaml:"migrations_dir"`
	SourceTable     string   `yaml:"source_table"`
	Target          string   `yaml:"target"`
	DropColumns     []string `yaml:"drop_columns"`
	NumericColumns  []string `yaml:"numeric_columns"`
	ModeFillColumns []string `yaml:"mode_fill_columns"`
	TestRatio       float64  `yaml:"test_ratio"`
	Seed            int64    `yaml:"seed"`
	Alpha           float64  `yaml:"alpha"`
	MaxIter         int      `yaml:"max_iter"`
	Tolerance       float64  `yaml:"tolerance"`
	IgnoreUnknown   FlexBool `yaml:"ignore_unknown"`
}

// ServerConfig holds the web front end settings.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// SampleConfig controls the CSV sample export.
type SampleConfig struct {
	OutputDir string `yaml:"output_dir"`
	Limit     int    `yaml:"limit"`
}

// Default returns the configuration used when the YAML file leaves a value
// out.
func Default() *Config {
	return &Config{
		App: AppConfig{LogLevel: "info"},
		Database: DatabaseConfig{
			Port:    5432,
			Name:    "chi-traffic-accidents",
			SSLMode: "disable",
		},
		SODA: SODAConfig{
			Domain:   "data.cityofchicago.org",
			PageSize: 50000,
			Timeout:  Duration(2 * time.Minute),
		},
		Model: ModelConfig{
			ArtifactDir:   "models",
			MigrationsDir: "db/schema",
			SourceTable:   "crashes",
			Target:        "injuries_total",
			// Besides the identifiers, every column derived from the
			// injury counts is dropped so the target does not leak.
			DropColumns: []string{
				"crash_record_id", "crash_date", "report_type",
				"prim_contributory_cause", "intersection_related_i",
				"hit_and_run_i", "lane_cnt", "has_injuries",
				"injury_category", "injuries_fatal", "injuries_incapacitating",
				"injuries_non_incapacitating", "num_injured_people",
				"latitude", "longitude",
			},
			NumericColumns:  []string{"posted_speed_limit", "num_units", "crash_hour"},
			ModeFillColumns: []string{"street_direction"},
			TestRatio:       0.25,
			Seed:            42,
			Alpha:           0.01,
			MaxIter:         1000,
			Tolerance:       1e-4,
			IgnoreUnknown:   true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		Sample: SampleConfig{OutputDir: "data", Limit: 100},
	}
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables. A .env file in the working directory is
// loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load sensitive data and overrides from environment variables.
func applyEnv(cfg *Config) error {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	if token := os.Getenv("CHI_API_KEY"); token != "" {
		cfg.SODA.AppToken = token
	}
	if host := os.Getenv("PG_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("PG_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PG_PORT: %w", err)
		}
		cfg.Database.Port = p
	}
	if user := os.Getenv("PG_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("PG_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("PG_DBNAME"); name != "" {
		cfg.Database.Name = name
	}
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	return nil
}

// Requirement names a group of settings a command cannot run without.
type Requirement int

const (
	// RequireDatabase needs PG_HOST, PG_USER and PG_PASSWORD.
	RequireDatabase Requirement = iota
	// RequireSODA needs CHI_API_KEY.
	RequireSODA
)

// Validate reports every missing value for the given requirements in a
// single error wrapping ErrMissingValue.
func (c *Config) Validate(need ...Requirement) error {
	var missing []string
	for _, r := range need {
		switch r {
		case RequireDatabase:
			if c.Database.Host == "" {
				missing = append(missing, "PG_HOST")
			}
			if c.Database.User == "" {
				missing = append(missing, "PG_USER")
			}
			if c.Database.Password == "" {
				missing = append(missing, "PG_PASSWORD")
			}
		case RequireSODA:
			if c.SODA.AppToken == "" {
				missing = append(missing, "CHI_API_KEY")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingValue, strings.Join(missing, ", "))
	}
	return nil
}
