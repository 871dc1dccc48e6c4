package config

import (
	"os"
	"path/filepath"
)

// Config carries process-level settings read from the environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// DataDir holds the database and log file by default.
	DataDir string
	// DBPath is the sqlite database file.
	DBPath string
	// LogFile receives application logs. Empty means stdout only.
	LogFile string
	// AdminUser and AdminPassword bootstrap the first account when the
	// users table is empty.
	AdminUser     string
	AdminPassword string
}

// Load reads configuration from NATSDASH_* environment variables, applying
// defaults for anything unset.
func Load() Config {
	dataDir := getenv("NATSDASH_DATA_DIR", "data")

	return Config{
		Addr:          getenv("NATSDASH_ADDR", ":8080"),
		DataDir:       dataDir,
		DBPath:        getenv("NATSDASH_DB_PATH", filepath.Join(dataDir, "natsdash.db")),
		LogFile:       getenv("NATSDASH_LOG_FILE", filepath.Join(dataDir, "natsdash.log")),
		AdminUser:     getenv("NATSDASH_ADMIN_USER", "admin"),
		AdminPassword: os.Getenv("NATSDASH_ADMIN_PASSWORD"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
