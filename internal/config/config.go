package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`

	// S3
	S3Enabled         bool   `yaml:"s3_enabled"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3BucketName      string `yaml:"s3_bucket_name"`
	S3UseSSL          bool   `yaml:"s3_use_ssl"`

	// OpenRouter
	OpenRouterAPIKey  string        `yaml:"openrouter_api_key"`
	OpenRouterModel   string        `yaml:"openrouter_model"`
	OpenRouterBaseURL string        `yaml:"openrouter_base_url"`
	OpenRouterTimeout time.Duration `yaml:"openrouter_timeout"`
	OpenRouterReferer string        `yaml:"openrouter_referer"`

	// Analysis
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
	LegalSystem     string        `yaml:"legal_system"`

	// OCR
	PopplerPath   string `yaml:"poppler_path"`
	TesseractPath string `yaml:"tesseract_path"`
	OCRLanguage   string `yaml:"ocr_language"`
	OCRDPI        int    `yaml:"ocr_dpi"`
	OCRMaxPages   int    `yaml:"ocr_max_pages"`
	OCRWorkers    int    `yaml:"ocr_workers"`
	OCRTempDir    string `yaml:"ocr_temp_dir"`

	// Upload limits
	MaxFileSize int64 `yaml:"max_file_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:              "8080",
		DatabaseURL:       "data/agreements.db",
		LogLevel:          "info",
		S3Endpoint:        "localhost:9000",
		S3AccessKeyID:     "minioadmin",
		S3SecretAccessKey: "minioadmin",
		S3BucketName:      "documents",
		OpenRouterModel:   "openai/gpt-4o-mini",
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		OpenRouterTimeout: 60 * time.Second,
		AnalysisTimeout:   3 * time.Minute,
		LegalSystem:       "India",
		OCRLanguage:       "eng",
		OCRDPI:            300,
		OCRWorkers:        2,
		MaxFileSize:       5 * 1024 * 1024,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.S3AccessKeyID)
	c.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.S3SecretAccessKey)
	c.S3BucketName = getEnv("S3_BUCKET_NAME", c.S3BucketName)

	c.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.OpenRouterModel = getEnv("OPENROUTER_MODEL", c.OpenRouterModel)
	c.OpenRouterBaseURL = getEnv("OPENROUTER_BASE_URL", c.OpenRouterBaseURL)
	c.OpenRouterReferer = getEnv("OPENROUTER_REFERER", c.OpenRouterReferer)

	c.LegalSystem = getEnv("LEGAL_SYSTEM", c.LegalSystem)
	c.PopplerPath = getEnv("POPPLER_PATH", c.PopplerPath)
	c.TesseractPath = getEnv("TESSERACT_PATH", c.TesseractPath)
	c.OCRLanguage = getEnv("TESSERACT_LANG", c.OCRLanguage)
	c.OCRTempDir = getEnv("OCR_TEMP_DIR", c.OCRTempDir)

	var err error
	if c.S3Enabled, err = getEnvBool("S3_ENABLED", c.S3Enabled); err != nil {
		return err
	}
	if c.S3UseSSL, err = getEnvBool("S3_USE_SSL", c.S3UseSSL); err != nil {
		return err
	}
	if c.OpenRouterTimeout, err = getEnvDuration("OPENROUTER_TIMEOUT", c.OpenRouterTimeout); err != nil {
		return err
	}
	if c.AnalysisTimeout, err = getEnvDuration("ANALYSIS_TIMEOUT", c.AnalysisTimeout); err != nil {
		return err
	}
	if c.OCRDPI, err = getEnvInt("OCR_DPI", c.OCRDPI); err != nil {
		return err
	}
	if c.OCRMaxPages, err = getEnvInt("OCR_MAX_PAGES", c.OCRMaxPages); err != nil {
		return err
	}
	if c.OCRWorkers, err = getEnvInt("OCR_WORKERS", c.OCRWorkers); err != nil {
		return err
	}
	maxSize, err := getEnvInt("MAX_FILE_SIZE", int(c.MaxFileSize))
	if err != nil {
		return err
	}
	c.MaxFileSize = int64(maxSize)
	return nil
}

func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be > 0")
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("analysis_timeout must be > 0")
	}
	if c.OCRDPI <= 0 {
		return fmt.Errorf("ocr_dpi must be > 0")
	}
	if c.OCRMaxPages < 0 {
		return fmt.Errorf("ocr_max_pages must be >= 0")
	}
	if c.OCRWorkers <= 0 {
		return fmt.Errorf("ocr_workers must be > 0")
	}
	if c.S3Enabled && c.S3BucketName == "" {
		return fmt.Errorf("s3_bucket_name is required when S3 is enabled")
	}
	return nil
}

// PdftoppmBinary resolves pdftoppm inside PopplerPath when it is set.
func (c *Config) PdftoppmBinary() string {
	if c.PopplerPath == "" {
		return "pdftoppm"
	}
	return filepath.Join(c.PopplerPath, "pdftoppm")
}

func (c *Config) TesseractBinary() string {
	if c.TesseractPath == "" {
		return "tesseract"
	}
	return c.TesseractPath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}
