package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Face sink kinds.
const (
	SinkNone  = "none"
	SinkLocal = "local"
	SinkAzure = "azure"
)

type Config struct {
	// Server
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Detection models
	FaceCascadePath    string
	ProfileCascadePath string
	DNNConfigPath      string
	DNNModelPath       string
	DNNConfidence      float64

	// Pipeline
	MatchThreshold    float64
	ComparisonMethod  string
	FacePadding       float64
	CanonicalFaceSize int
	SSIMEnabled       bool
	PreprocessEnabled bool

	// Face sink and blob storage
	FaceSink                string
	FaceSinkDir             string
	AzureStorageAccountName string
	AzureStorageAccountKey  string
	AzureStorageContainer   string

	OCRLanguage  string
	BatchWorkers int
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureConfigured reports whether blob credentials are present.
func (c *Config) AzureConfigured() bool {
	return c.AzureStorageAccountName != "" && c.AzureStorageAccountKey != ""
}

// LoadFromEnv reads the configuration from the environment, after loading a
// .env file from the working directory when there is one.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg := &Config{
		Host:               getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("SERVER_PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    parseDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),

		FaceCascadePath:    os.Getenv("FACE_CASCADE_PATH"),
		ProfileCascadePath: os.Getenv("PROFILE_CASCADE_PATH"),
		DNNConfigPath:      os.Getenv("DNN_CONFIG_PATH"),
		DNNModelPath:       os.Getenv("DNN_MODEL_PATH"),
		DNNConfidence:      parseFloatOrDefault("DNN_CONFIDENCE", 0.5),

		MatchThreshold:    parseFloatOrDefault("MATCH_THRESHOLD", 0.6),
		ComparisonMethod:  getEnvOrDefault("COMPARISON_METHOD", "ensemble"),
		FacePadding:       parseFloatOrDefault("FACE_PADDING", 0.2),
		CanonicalFaceSize: int(parseIntOrDefault("CANONICAL_FACE_SIZE", 600)),
		SSIMEnabled:       parseBoolOrDefault("SSIM_ENABLED", true),
		PreprocessEnabled: parseBoolOrDefault("PREPROCESS_ENABLED", true),

		FaceSink:                strings.ToLower(getEnvOrDefault("FACE_SINK", SinkNone)),
		FaceSinkDir:             getEnvOrDefault("FACE_SINK_DIR", "extracted_faces"),
		AzureStorageAccountName: os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
		AzureStorageAccountKey:  os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"),
		AzureStorageContainer:   getEnvOrDefault("AZURE_STORAGE_CONTAINER", "faces"),

		OCRLanguage:  getEnvOrDefault("OCR_LANGUAGE", "eng"),
		BatchWorkers: int(parseIntOrDefault("BATCH_WORKERS", 4)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, shutdown=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.ShutdownTimeout)
	}
	if !(c.MatchThreshold >= 0 && c.MatchThreshold <= 1) {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0, 1] (got %v)", c.MatchThreshold)
	}
	if !(c.DNNConfidence > 0 && c.DNNConfidence <= 1) {
		return fmt.Errorf("DNN_CONFIDENCE must be within (0, 1] (got %v)", c.DNNConfidence)
	}
	if !(c.FacePadding >= 0) {
		return fmt.Errorf("FACE_PADDING must be >= 0 (got %v)", c.FacePadding)
	}
	if c.CanonicalFaceSize <= 0 {
		return fmt.Errorf("CANONICAL_FACE_SIZE must be > 0 (got %d)", c.CanonicalFaceSize)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be > 0 (got %d)", c.BatchWorkers)
	}
	switch c.FaceSink {
	case SinkNone, SinkLocal:
	case SinkAzure:
		if !c.AzureConfigured() {
			return fmt.Errorf("FACE_SINK=azure requires AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
		}
	default:
		return fmt.Errorf("invalid FACE_SINK: %q", c.FaceSink)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseFloatOrDefault keeps unparsable values visible to Validate by
// returning NaN.
func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
