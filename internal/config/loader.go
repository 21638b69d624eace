package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func LoadConfig(filePath string) (*Config, error) {
	// Secrets live in the environment, optionally seeded from a .env file.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using system environment")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if key := os.Getenv("GEOCODER_API_KEY"); key != "" {
		cfg.Geocode.APIKey = key
	}
	if chrome := os.Getenv("CHROME_PATH"); chrome != "" {
		cfg.Rod.ChromePath = chrome
	}
}
