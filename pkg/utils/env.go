package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads a .env file (if present) and primes viper with the
// process environment so settings can be overridden without flags.
func LoadConfig(path string) {
	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			logrus.Warnf("[CONFIG] Failed to load %s: %v", envPath, err)
		}
	}

	viper.AutomaticEnv()
}

// CreateFolder creates every given directory if it does not already exist.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}
