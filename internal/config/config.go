package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DB      DBConfig
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
	Broker  BrokerConfig
	Seeder  SeederConfig
}

// DBType represents database type
type DBType string

const (
	DBTypePostgreSQL DBType = "postgres"
	DBTypeMemory     DBType = "memory"
)

// DBConfig holds database configuration
type DBConfig struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the database connection string
func (c DBConfig) DSN() string {
	if c.Type == DBTypeMemory {
		// SQLite in-memory database
		if c.Name != "" && c.Name != "roamai" {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared", c.Name)
		}
		return "file::memory:?cache=shared"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// IsMemory returns true if using in-memory database
func (c DBConfig) IsMemory() bool {
	return c.Type == DBTypeMemory
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	// AllowedOrigins restricts websocket upgrades; empty allows any origin
	AllowedOrigins []string
}

// AIConfig holds settings for the hosted generative model
type AIConfig struct {
	APIKey    string
	Model     string
	LiveModel string
	Timeout   time.Duration
}

// SessionConfig holds the tunables of a device companion session
type SessionConfig struct {
	GeocodeThreshold  float64
	ProbeJitter       float64
	BackOnlineWindow  time.Duration
	VoiceGraceDelay   time.Duration
	VoiceChunkSamples int
	SuggestionLimit   int
	UserName          string
	UserAvatarURL     string
}

// BrokerConfig holds the optional AMQP event fan-out settings
type BrokerConfig struct {
	URL      string
	Exchange string
}

// Enabled reports whether events should be published to the broker
func (c BrokerConfig) Enabled() bool {
	return c.URL != ""
}

// SeederConfig holds settings for history fixture import
type SeederConfig struct {
	DataDir   string
	BatchSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbType := DBType(getEnv("DB_TYPE", "memory"))
	if dbType != DBTypePostgreSQL && dbType != DBTypeMemory {
		dbType = DBTypeMemory
	}

	config := &Config{
		DB: DBConfig{
			Type:     dbType,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "roamai"),
			Password: getEnv("DB_PASSWORD", "roamai_password"),
			Name:     getEnv("DB_NAME", "roamai"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS"),
		},
		AI: AIConfig{
			APIKey:    getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
			Model:     getEnv("AI_MODEL", "gemini-3-flash-preview"),
			LiveModel: getEnv("AI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-12-2025"),
			Timeout:   getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			GeocodeThreshold:  getEnvAsFloat("GEOCODE_THRESHOLD", 0.01),
			ProbeJitter:       getEnvAsFloat("PROBE_JITTER", 0.005),
			BackOnlineWindow:  getEnvAsDuration("BACK_ONLINE_WINDOW", 3*time.Second),
			VoiceGraceDelay:   getEnvAsDuration("VOICE_GRACE_DELAY", 800*time.Millisecond),
			VoiceChunkSamples: getEnvAsInt("VOICE_CHUNK_SAMPLES", 4096),
			SuggestionLimit:   getEnvAsInt("SUGGESTION_LIMIT", 2),
			UserName:          getEnv("USER_NAME", "Traveler"),
			UserAvatarURL:     getEnv("USER_AVATAR_URL", "https://picsum.photos/seed/roamai/200"),
		},
		Broker: BrokerConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "roamai_events"),
		},
		Seeder: SeederConfig{
			DataDir:   getEnv("SEEDER_DATA_DIR", "data"),
			BatchSize: getEnvAsInt("SEEDER_BATCH_SIZE", 100),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
