package config

import "os"

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port string

	// DatabaseURL selects the backing store. "sqlite://<path>" or
	// "postgres://<dsn>".
	DatabaseURL string

	// CORSOrigin is the single allowed browser origin. "*" allows all.
	CORSOrigin string

	// UploadDir is the directory where submitted images are written.
	UploadDir string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "sqlite://plaka.db"
	}

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	return &Config{
		Port:        port,
		DatabaseURL: dbURL,
		CORSOrigin:  corsOrigin,
		UploadDir:   uploadDir,
	}
}
