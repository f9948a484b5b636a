package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	// Database
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`
	DBLogLevel string `yaml:"db_log_level"`

	// JWT
	JWTSecret        string        `yaml:"jwt_secret"`
	JWTExpirationDur time.Duration `yaml:"-"`
}

var appConfig *Config

// defaults mirrors the values used when neither the config file nor the
// environment provide a setting.
var defaults = map[string]string{
	"PORT":           "8080",
	"ENV":            "development",
	"DB_DRIVER":      "postgres",
	"DB_HOST":        "localhost",
	"DB_PORT":        "5432",
	"DB_USER":        "pocketledger",
	"DB_PASSWORD":    "pocketledger",
	"DB_NAME":        "pocketledger",
	"DB_SSLMODE":     "disable",
	"DB_LOG_LEVEL":   "error",
	"JWT_SECRET":     "fallback-secret-key-for-dev-only",
	"JWT_EXPIRES_IN": "24h",
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables. Environment variables take precedence.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	file := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		file, err = readFile(path)
		if err != nil {
			return nil, err
		}
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", file.Port),
		Env:  getEnv("ENV", file.Env),

		// Database
		DBDriver:   getEnv("DB_DRIVER", file.DBDriver),
		DBHost:     getEnv("DB_HOST", file.DBHost),
		DBPort:     getEnv("DB_PORT", file.DBPort),
		DBUser:     getEnv("DB_USER", file.DBUser),
		DBPassword: getEnv("DB_PASSWORD", file.DBPassword),
		DBName:     getEnv("DB_NAME", file.DBName),
		DBSSLMode:  getEnv("DB_SSLMODE", file.DBSSLMode),
		DBLogLevel: getEnv("DB_LOG_LEVEL", file.DBLogLevel),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", file.JWTSecret),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// getEnv retrieves an environment variable, then the file value, then the
// built-in default.
func getEnv(key, fileValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaults[key]
}
