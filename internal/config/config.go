// Package config loads the service configuration from YAML, an optional
// .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gartstein/kyp/internal/credit/db"
	"github.com/gartstein/kyp/internal/credit/ratios"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when KYP_CONFIG is unset.
const DefaultPath = "config/config.yaml"

// Config struct for YAML configuration
type Config struct {
	GRPCPort       int      `yaml:"GRPC_PORT" validate:"required,min=1,max=65535"`
	HTTPPort       int      `yaml:"HTTP_PORT" validate:"required,min=1,max=65535,nefield=GRPCPort"`
	DBHost         string   `yaml:"DB_HOST" validate:"required"`
	DBPort         int      `yaml:"DB_PORT" validate:"required,min=1,max=65535"`
	DBUser         string   `yaml:"DB_USER" validate:"required"`
	DBPassword     string   `yaml:"DB_PASSWORD"`
	DBName         string   `yaml:"DB_NAME" validate:"required"`
	DBSSLMode      string   `yaml:"DB_SSLMODE" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	KafkaBrokers   []string `yaml:"KAFKA_BROKERS" validate:"required,min=1,dive,hostname_port"`
	Topic          string   `yaml:"TOPIC" validate:"required"`
	RequestTopic   string   `yaml:"REQUEST_TOPIC"`
	GroupID        string   `yaml:"GROUP_ID" validate:"required_with=RequestTopic"`
	JWTSecret      string   `yaml:"JWT_SECRET" validate:"required,min=8"`
	BenchmarksFile string   `yaml:"BENCHMARKS_FILE"`
	LogLevel       string   `yaml:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present; KYP_CONFIG selects the YAML path, and
// JWT_SECRET, DB_PASSWORD and KAFKA_BROKERS override the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	path := os.Getenv("KYP_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads the YAML file at path and applies the environment overrides.
func LoadFile(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
}

// Validate checks ports, required fields and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// Benchmarks returns the sector thresholds: the compiled-in table, or the
// file named by BENCHMARKS_FILE.
func (c *Config) Benchmarks() (ratios.Benchmarks, error) {
	if c.BenchmarksFile == "" {
		return ratios.DefaultBenchmarks(), nil
	}
	return LoadBenchmarks(c.BenchmarksFile)
}

// LoadBenchmarks reads a benchmark YAML file.
func LoadBenchmarks(path string) (ratios.Benchmarks, error) {
	f, err := os.Open(path)
	if err != nil {
		return ratios.Benchmarks{}, err
	}
	defer f.Close()
	return ratios.LoadBenchmarks(f)
}

// NewLogger builds a production logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.LogLevel != "" {
		level, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	return cfg.Build()
}
