package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction"`
	LLM        LLMConfig        `yaml:"llm"`
	Auth       AuthConfig       `yaml:"auth"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // "postgres" | "sqlite"
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	AutoMigrate      bool          `yaml:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the blob store.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "local" | "gcs"
	LocalDir  string `yaml:"local_dir"`
	GCSBucket string `yaml:"gcs_bucket"`
	Prefix    string `yaml:"prefix"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string        `yaml:"tesseract"`
	Pdftoppm    string        `yaml:"pdftoppm"`
	Language    string        `yaml:"language"`
	TessdataDir string        `yaml:"tessdata_dir"`
	PSM         int           `yaml:"psm"`
	OEM         int           `yaml:"oem"`
	Scale       float64       `yaml:"scale"`
	MaxPages    int           `yaml:"max_pages"`
	PageWorkers int           `yaml:"page_workers"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ExtractionConfig holds the fallback policy thresholds.
type ExtractionConfig struct {
	ScannedThreshold int `yaml:"scanned_threshold"`
	MinimalThreshold int `yaml:"minimal_threshold"`
	MinOCRChars      int `yaml:"min_ocr_chars"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // "gemini" | "vertex"
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	ProjectID       string        `yaml:"project_id"`
	Region          string        `yaml:"region"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	MaxInputChars   int           `yaml:"max_input_chars"`
	Timeout         time.Duration `yaml:"timeout"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PipelineConfig bounds in-process pipeline runs.
type PipelineConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:docintake.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			AutoMigrate:     true,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			MaxUploadBytes:  10 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "./data/blobs",
		},
		OCR: OCRConfig{
			Tesseract:   "tesseract",
			Pdftoppm:    "pdftoppm",
			Language:    "eng",
			Scale:       2.0,
			MaxPages:    10,
			PageWorkers: 1,
			Timeout:     2 * time.Minute,
		},
		Extraction: ExtractionConfig{
			ScannedThreshold: 100,
			MinimalThreshold: 50,
			MinOCRChars:      10,
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Region:          "us-central1",
			Temperature:     0.3,
			MaxOutputTokens: 4000,
			MaxInputChars:   15000,
			Timeout:         60 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: 4,
			Timeout:       4 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// and environment variables, in that order of precedence (env wins).
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "load .env", err)
	}

	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)
	c.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.LocalDir = getEnv("STORAGE_LOCAL_DIR", c.Storage.LocalDir)
	c.Storage.GCSBucket = getEnv("STORAGE_GCS_BUCKET", c.Storage.GCSBucket)
	c.Storage.Prefix = getEnv("STORAGE_PREFIX", c.Storage.Prefix)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Language = getEnv("OCR_LANG", c.OCR.Language)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("OCR_OEM", c.OCR.OEM)
	c.OCR.Scale = getEnvAsFloat64("OCR_SCALE", c.OCR.Scale)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.PageWorkers = getEnvAsInt("OCR_PAGE_WORKERS", c.OCR.PageWorkers)
	c.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout)

	c.Extraction.ScannedThreshold = getEnvAsInt("EXTRACT_SCANNED_THRESHOLD", c.Extraction.ScannedThreshold)
	c.Extraction.MinimalThreshold = getEnvAsInt("EXTRACT_MINIMAL_THRESHOLD", c.Extraction.MinimalThreshold)
	c.Extraction.MinOCRChars = getEnvAsInt("EXTRACT_MIN_OCR_CHARS", c.Extraction.MinOCRChars)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("GEMINI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("GEMINI_BASE_URL", c.LLM.BaseURL)
	c.LLM.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", c.LLM.ProjectID)
	c.LLM.Region = getEnv("VERTEX_REGION", c.LLM.Region)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxOutputTokens = getEnvAsInt32("LLM_MAX_OUTPUT_TOKENS", c.LLM.MaxOutputTokens)
	c.LLM.MaxInputChars = getEnvAsInt("LLM_MAX_INPUT_CHARS", c.LLM.MaxInputChars)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("AUTH_ISSUER", c.Auth.Issuer)
	c.Auth.TokenTTL = getEnvAsDuration("AUTH_TOKEN_TTL", c.Auth.TokenTTL)

	c.Pipeline.MaxConcurrent = getEnvAsInt("PIPELINE_MAX_CONCURRENT", c.Pipeline.MaxConcurrent)
	c.Pipeline.Timeout = getEnvAsDuration("PIPELINE_TIMEOUT", c.Pipeline.Timeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return NewAppError("CONFIG_ERROR", "STORAGE_LOCAL_DIR is required for local storage", ErrInvalidInput)
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return NewAppError("CONFIG_ERROR", "STORAGE_GCS_BUCKET is required for gcs storage", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("STORAGE_BACKEND must be local or gcs, got %q", c.Storage.Backend), ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case "vertex":
		if c.LLM.ProjectID == "" {
			return NewAppError("CONFIG_ERROR", "GOOGLE_CLOUD_PROJECT is required for vertex", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("LLM_PROVIDER must be gemini or vertex, got %q", c.LLM.Provider), ErrInvalidInput)
	}
	if c.Auth.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "AUTH_JWT_SECRET is required", ErrInvalidInput)
	}
	if c.Extraction.MinimalThreshold > c.Extraction.ScannedThreshold {
		return NewAppError("CONFIG_ERROR", "EXTRACT_MINIMAL_THRESHOLD must not exceed EXTRACT_SCANNED_THRESHOLD", ErrInvalidInput)
	}
	if c.OCR.MaxPages <= 0 || c.OCR.Scale <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_PAGES and OCR_SCALE must be positive", ErrInvalidInput)
	}
	return nil
}
