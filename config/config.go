package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	UploadDir string
	OutputDir string

	MaxFileSizeMB  int64
	MaxFiles       int
	MaxTotalSizeMB int64

	RetentionHours         int
	CleanupIntervalMinutes int

	PdfToTextBin string
	PdfImagesBin string

	R2Endpoint        string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2PublicURL       string
}

func Load() *Config {
	return &Config{
		Port:                   getEnv("SERVICE_PORT", "8080"),
		Env:                    getEnv("ENV", "development"),
		UploadDir:              getEnv("UPLOAD_DIR", "./uploads"),
		OutputDir:              getEnv("OUTPUT_DIR", "./outputs"),
		MaxFileSizeMB:          getEnvAsInt64("MAX_FILE_SIZE_MB", 20),
		MaxFiles:               getEnvAsInt("MAX_FILES", 20),
		MaxTotalSizeMB:         getEnvAsInt64("MAX_TOTAL_SIZE_MB", 100),
		RetentionHours:         getEnvAsInt("FILE_RETENTION_HOURS", 24),
		CleanupIntervalMinutes: getEnvAsInt("CLEANUP_INTERVAL_MINUTES", 10),
		PdfToTextBin:           getEnv("PDFTOTEXT_BIN", "pdftotext"),
		PdfImagesBin:           getEnv("PDFIMAGES_BIN", "pdfimages"),
		R2Endpoint:             getEnv("R2_ENDPOINT_URL", ""),
		R2AccessKeyID:          getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:      getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:               getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:            getEnv("R2_PUBLIC_URL", ""),
	}
}

func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

func (c *Config) MaxTotalSizeBytes() int64 {
	return c.MaxTotalSizeMB * 1024 * 1024
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// R2Enabled reports whether every credential needed for asset upload is set.
func (c *Config) R2Enabled() bool {
	return c.R2Endpoint != "" &&
		c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" &&
		c.R2Bucket != "" &&
		c.R2PublicURL != ""
}

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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
