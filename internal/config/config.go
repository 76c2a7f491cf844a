package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all runtime configuration for the engine and its HTTP surface.
// Values come from the environment, with an optional .env file for local
// development.
type Config struct {
	// Port is the HTTP listen port for cmd/api.
	Port string

	// FirebaseCredentialsFile is the path to the service account JSON used
	// to reach Firestore. When empty the engine runs on in-memory feeds.
	FirebaseCredentialsFile string

	// FirestoreProjectID overrides the project inferred from the credentials.
	FirestoreProjectID string

	// GCSBucket is the bucket holding uploaded receipt images.
	GCSBucket string

	// AdvisoryModel is the Gemini model used for insight enhancement.
	// Empty disables the remote tier entirely (local analysis only).
	AdvisoryModel string

	// AdvisoryTimeout bounds a single advisory call.
	AdvisoryTimeout time.Duration

	// ExtractionModel is the Gemini model used for receipt extraction.
	ExtractionModel string

	// CategorizeModel is the Gemini model used to label transactions whose
	// source record carried no category. Empty disables AI categorization.
	CategorizeModel string

	// CategorizeTimeout bounds a single categorization batch call.
	CategorizeTimeout time.Duration

	// TrendDeadBandPercent is the +/- percentage inside which an expense
	// change is reported as stable.
	TrendDeadBandPercent float64
}

// Load reads configuration from the environment. A missing .env file is not
// an error; OS environment variables and defaults apply either way.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using OS environment and defaults")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirestoreProjectID:      getEnv("FIRESTORE_PROJECT_ID", ""),
		GCSBucket:               getEnv("GCS_BUCKET", ""),
		AdvisoryModel:           getEnv("ADVISORY_MODEL", "gemini-2.5-flash"),
		AdvisoryTimeout:         getEnvDuration(log, "ADVISORY_TIMEOUT", 5*time.Second),
		ExtractionModel:         getEnv("EXTRACTION_MODEL", "gemini-2.5-flash"),
		CategorizeModel:         getEnv("CATEGORIZE_MODEL", "gemini-2.5-flash"),
		CategorizeTimeout:       getEnvDuration(log, "CATEGORIZE_TIMEOUT", 5*time.Second),
		TrendDeadBandPercent:    getEnvFloat(log, "TREND_DEAD_BAND_PERCENT", 5.0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(log zerolog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvFloat(log zerolog.Logger, key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid number, using default")
		return fallback
	}
	return f
}
