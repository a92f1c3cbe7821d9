// Package config loads the reference CLI's configuration from environment
// variables, in the teacher's envOr/envBool/envInt style (internal
// config.Load), generalised from the teacher's server-side settings
// (listen address, database URL, S3 credentials) to the handful a sync
// client needs.
package config

import (
	"os"
	"time"
)

// Config holds the reference CLI's runtime settings.
type Config struct {
	ServerURL      string
	ProjectDir     string
	PrivateKeyPath string
	StorePath      string
	MetricsAddr    string
	LogLevel       string
	PollInterval   time.Duration
}

// Load reads configuration from environment variables, defaulting every
// field to a value usable on a developer's own machine.
func Load() *Config {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}

	return &Config{
		ServerURL:      envOr("COURSESYNC_SERVER_URL", "https://courses.example.edu"),
		ProjectDir:     envOr("COURSESYNC_PROJECT_DIR", home+"/CodeExpertProjects"),
		PrivateKeyPath: envOr("COURSESYNC_PRIVATE_KEY", home+"/.coursesync/privateKey.pem"),
		StorePath:      envOr("COURSESYNC_STORE_PATH", home+"/.coursesync/project_metadata.json"),
		MetricsAddr:    envOr("COURSESYNC_METRICS_ADDR", ""),
		LogLevel:       envOr("COURSESYNC_LOG_LEVEL", "info"),
		PollInterval:   envDuration("COURSESYNC_POLL_INTERVAL", 0),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
