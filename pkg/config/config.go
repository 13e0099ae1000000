package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Meeting    MeetingConfig
	Kimi       KimiConfig
	AssemblyAI AssemblyAIConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Pipeline   PipelineConfig
}

// MeetingConfig holds credentials for the external meeting platform API.
// All four identifiers are issued together by the platform console; the
// secret key never appears in a request, only in the HMAC.
type MeetingConfig struct {
	AppID     string `validate:"required"`
	SdkID     string `validate:"required"`
	SecretID  string `validate:"required"`
	SecretKey string `validate:"required"`
	BaseURL   string `validate:"required,url"`
	// SignWithSdkID pins whether SdkId participates in the canonical string.
	// The platform is inconsistent across deployments; verify against the
	// real API before changing.
	SignWithSdkID bool
	Timeout       time.Duration
}

// KimiConfig holds configuration for the Kimi ASR/LLM endpoints
type KimiConfig struct {
	APIKey    string `validate:"required"`
	BaseURL   string `validate:"required,url"`
	ChatModel string
	Timeout   time.Duration
}

// AssemblyAIConfig holds the optional AssemblyAI transcription backend
type AssemblyAIConfig struct {
	APIKey string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// StorageConfig holds the optional object-storage audio archive.
// Normalized audio is archived there because the platform's download URLs
// expire shortly after issuance.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// Enabled reports whether an archive endpoint was configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

// RedisConfig holds the optional run-lock backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// PipelineConfig holds orchestration tuning
type PipelineConfig struct {
	Workers             int `validate:"min=1,max=32"`
	PageSize            int `validate:"min=1,max=200"`
	SkipCompleted       bool
	Timezone            string
	TranscriberBackend  string `validate:"oneof=kimi assemblyai"`
	DownloadConnections int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Meeting: MeetingConfig{
			AppID:         getEnv("WEMEET_APP_ID", ""),
			SdkID:         getEnv("WEMEET_SDK_ID", ""),
			SecretID:      getEnv("WEMEET_SECRET_ID", ""),
			SecretKey:     getEnv("WEMEET_SECRET_KEY", ""),
			BaseURL:       getEnv("WEMEET_BASE_URL", "https://api.meeting.qq.com"),
			SignWithSdkID: getEnvAsBool("WEMEET_SIGN_WITH_SDK_ID", true),
			Timeout:       getEnvAsDuration("WEMEET_TIMEOUT", "15s"),
		},
		Kimi: KimiConfig{
			APIKey:    getEnv("KIMI_API_KEY", ""),
			BaseURL:   getEnv("KIMI_BASE_URL", "https://api.moonshot.cn/v1"),
			ChatModel: getEnv("KIMI_CHAT_MODEL", "moonshot-v1-8k"),
			Timeout:   getEnvAsDuration("KIMI_TIMEOUT", "120s"),
		},
		AssemblyAI: AssemblyAIConfig{
			APIKey: getEnv("ASSEMBLYAI_API_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "meeting_ingest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", ""),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Pipeline: PipelineConfig{
			Workers:             getEnvAsInt("PIPELINE_WORKERS", 4),
			PageSize:            getEnvAsInt("PIPELINE_PAGE_SIZE", 50),
			SkipCompleted:       getEnvAsBool("PIPELINE_SKIP_COMPLETED", true),
			Timezone:            getEnv("PIPELINE_TIMEZONE", "Asia/Shanghai"),
			TranscriberBackend:  getEnv("TRANSCRIBER_BACKEND", "kimi"),
			DownloadConnections: getEnvAsInt("DOWNLOAD_CONNECTIONS", 8),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration. Missing credentials are fatal:
// the pipeline must not start a run it cannot authenticate.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Pipeline.TranscriberBackend == "assemblyai" && c.AssemblyAI.APIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required when TRANSCRIBER_BACKEND=assemblyai")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid PIPELINE_TIMEZONE %q: %w", c.Pipeline.Timezone, err)
	}
	return nil
}

// Location returns the fixed zone used to derive incremental windows.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
