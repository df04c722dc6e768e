package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything schemactl needs for one target database.
type Config struct {
	DB            DBConfig
	MetadataTable string
	LogLevel      string
}

// DBConfig identifies the single MySQL database this tool manages.
type DBConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SchemaFile string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	port, err := parsePort(getEnv("SCHEMACTL_DB_PORT", "3306"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DB: DBConfig{
			Host:       getEnv("SCHEMACTL_DB_HOST", "localhost"),
			Port:       port,
			User:       os.Getenv("SCHEMACTL_DB_USER"),
			Password:   os.Getenv("SCHEMACTL_DB_PASSWORD"),
			DBName:     os.Getenv("SCHEMACTL_DB_NAME"),
			SchemaFile: os.Getenv("SCHEMACTL_SCHEMA_FILE"),
		},
		MetadataTable: getEnv("SCHEMACTL_METADATA_TABLE", "metadata"),
		LogLevel:      getEnv("SCHEMACTL_LOG_LEVEL", "warn"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DB.User == "" {
		return errors.New("SCHEMACTL_DB_USER is required")
	}
	if c.DB.DBName == "" {
		return errors.New("SCHEMACTL_DB_NAME is required")
	}
	if c.MetadataTable == "" {
		return errors.New("SCHEMACTL_METADATA_TABLE must not be blank")
	}
	return nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("SCHEMACTL_DB_PORT must be a valid port, got %q", raw)
	}
	return port, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
