// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Upload        UploadConfig        `yaml:"upload"`
	Pool          PoolConfig          `yaml:"pool"`
	Keepalive     KeepaliveConfig     `yaml:"keepalive"`
	STT           STTConfig           `yaml:"stt"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal string `yaml:"principal" validate:"required"`
	HTTPPort  string `yaml:"http_port" validate:"required,numeric"`
}

type UploadConfig struct {
	MaxBytes int64  `yaml:"max_bytes" validate:"gt=0"`
	TempDir  string `yaml:"temp_dir" validate:"required"`
}

// PoolConfig sizes the recognizer pool.
type PoolConfig struct {
	InitialSize        int           `yaml:"initial_size" validate:"gte=0,ltefield=MaxSize"`
	MaxSize            int           `yaml:"max_size" validate:"gte=1"`
	CalibrationTimeout time.Duration `yaml:"calibration_timeout" validate:"gt=0"`
	EnergyThreshold    float64       `yaml:"energy_threshold" validate:"gte=0"`
}

type KeepaliveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval" validate:"gt=0"`
	IdleThreshold time.Duration `yaml:"idle_threshold" validate:"gt=0"`
}

// STTConfig selects and configures the recognition backend.
type STTConfig struct {
	Provider     string        `yaml:"provider" validate:"oneof=mock deepgram google vosk command"`
	LanguageCode string        `yaml:"language_code" validate:"required"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key" validate:"required_if=Provider deepgram"`
	APIURL       string        `yaml:"api_url" validate:"omitempty,url"`
	VoskURL      string        `yaml:"vosk_url" validate:"required_if=Provider vosk"`
	Command      string        `yaml:"command" validate:"required_if=Provider command"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

// defaultModels holds the model each provider uses when none is configured.
var defaultModels = map[string]string{
	"deepgram": "nova-2",
	"google":   "default",
}

// ResolvedModel returns the configured model, or the provider's default.
func (c STTConfig) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

type KafkaConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic" validate:"required"`
	Principal string   `yaml:"principal"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json console"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: "svc-speech-transcribe",
			HTTPPort:  "8080",
		},
		Upload: UploadConfig{
			MaxBytes: 10 * 1024 * 1024,
			TempDir:  os.TempDir(),
		},
		Pool: PoolConfig{
			InitialSize:        3,
			MaxSize:            5,
			CalibrationTimeout: 5 * time.Second,
			EnergyThreshold:    0,
		},
		Keepalive: KeepaliveConfig{
			Enabled:       true,
			Interval:      time.Minute,
			IdleThreshold: 10 * time.Minute,
		},
		STT: STTConfig{
			Provider:     "mock",
			LanguageCode: "vi",
			APIURL:       "https://api.deepgram.com",
			VoskURL:      "ws://localhost:2700",
			Timeout:      30 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "speech.transcription.completed",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load builds the configuration. CONFIG_FILE, when set, is decoded over the
// defaults; environment variables then override individual fields.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", cfg.Service.Principal)
	cfg.Service.HTTPPort = envOrDefault("HTTP_PORT", cfg.Service.HTTPPort)

	cfg.Upload.MaxBytes = envOrDefaultInt64("UPLOAD_MAX_BYTES", cfg.Upload.MaxBytes)
	cfg.Upload.TempDir = envOrDefault("UPLOAD_TEMP_DIR", cfg.Upload.TempDir)

	cfg.Pool.InitialSize = envOrDefaultInt("POOL_INITIAL_SIZE", cfg.Pool.InitialSize)
	cfg.Pool.MaxSize = envOrDefaultInt("POOL_MAX_SIZE", cfg.Pool.MaxSize)
	cfg.Pool.CalibrationTimeout = envOrDefaultDuration("POOL_CALIBRATION_TIMEOUT", cfg.Pool.CalibrationTimeout)
	cfg.Pool.EnergyThreshold = envOrDefaultFloat("POOL_ENERGY_THRESHOLD", cfg.Pool.EnergyThreshold)

	cfg.Keepalive.Enabled = envOrDefaultBool("KEEPALIVE_ENABLED", cfg.Keepalive.Enabled)
	cfg.Keepalive.Interval = envOrDefaultDuration("KEEPALIVE_INTERVAL", cfg.Keepalive.Interval)
	cfg.Keepalive.IdleThreshold = envOrDefaultDuration("KEEPALIVE_IDLE_THRESHOLD", cfg.Keepalive.IdleThreshold)

	cfg.STT.Provider = envOrDefault("STT_PROVIDER", cfg.STT.Provider)
	cfg.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", cfg.STT.LanguageCode)
	cfg.STT.Model = envOrDefault("STT_MODEL", cfg.STT.Model)
	cfg.STT.APIKey = envOrDefault("STT_API_KEY", envOrDefault("DEEPGRAM_API_KEY", cfg.STT.APIKey))
	cfg.STT.APIURL = envOrDefault("STT_API_URL", cfg.STT.APIURL)
	cfg.STT.VoskURL = envOrDefault("STT_VOSK_URL", cfg.STT.VoskURL)
	cfg.STT.Command = envOrDefault("STT_COMMAND", cfg.STT.Command)
	cfg.STT.Timeout = envOrDefaultDuration("STT_TIMEOUT", cfg.STT.Timeout)

	cfg.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = envOrDefault("KAFKA_TOPIC", cfg.Kafka.Topic)
	// Kafka principal defaults to the service principal.
	principal := cfg.Kafka.Principal
	if principal == "" {
		principal = cfg.Service.Principal
	}
	cfg.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", principal)

	cfg.Observability.LogLevel = envOrDefault("LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.LogFormat = envOrDefault("LOG_FORMAT", cfg.Observability.LogFormat)
	cfg.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.Observability.MetricsAddr)
}

// Validate checks the struct tags on every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
