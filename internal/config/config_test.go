package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FIREBASE_CREDENTIALS_FILE", "FIRESTORE_PROJECT_ID", "GCS_BUCKET",
		"ADVISORY_MODEL", "ADVISORY_TIMEOUT", "EXTRACTION_MODEL",
		"CATEGORIZE_MODEL", "CATEGORIZE_TIMEOUT", "TREND_DEAD_BAND_PERCENT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load(zerolog.Nop())

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.AdvisoryModel != "gemini-2.5-flash" {
		t.Errorf("AdvisoryModel = %q", cfg.AdvisoryModel)
	}
	if cfg.AdvisoryTimeout != 5*time.Second {
		t.Errorf("AdvisoryTimeout = %v, want 5s", cfg.AdvisoryTimeout)
	}
	if cfg.CategorizeModel != "gemini-2.5-flash" {
		t.Errorf("CategorizeModel = %q", cfg.CategorizeModel)
	}
	if cfg.CategorizeTimeout != 5*time.Second {
		t.Errorf("CategorizeTimeout = %v, want 5s", cfg.CategorizeTimeout)
	}
	if cfg.TrendDeadBandPercent != 5.0 {
		t.Errorf("TrendDeadBandPercent = %v, want 5", cfg.TrendDeadBandPercent)
	}
	if cfg.FirebaseCredentialsFile != "" {
		t.Errorf("FirebaseCredentialsFile = %q, want empty", cfg.FirebaseCredentialsFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ADVISORY_TIMEOUT", "250ms")
	t.Setenv("TREND_DEAD_BAND_PERCENT", "2.5")
	t.Setenv("GCS_BUCKET", "receipts-test")

	cfg := Load(zerolog.Nop())

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.AdvisoryTimeout != 250*time.Millisecond {
		t.Errorf("AdvisoryTimeout = %v, want 250ms", cfg.AdvisoryTimeout)
	}
	if cfg.TrendDeadBandPercent != 2.5 {
		t.Errorf("TrendDeadBandPercent = %v, want 2.5", cfg.TrendDeadBandPercent)
	}
	if cfg.GCSBucket != "receipts-test" {
		t.Errorf("GCSBucket = %q", cfg.GCSBucket)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ADVISORY_TIMEOUT", "soon")
	t.Setenv("TREND_DEAD_BAND_PERCENT", "lots")

	cfg := Load(zerolog.Nop())

	if cfg.AdvisoryTimeout != 5*time.Second {
		t.Errorf("AdvisoryTimeout = %v, want the 5s default", cfg.AdvisoryTimeout)
	}
	if cfg.TrendDeadBandPercent != 5.0 {
		t.Errorf("TrendDeadBandPercent = %v, want the default 5", cfg.TrendDeadBandPercent)
	}
}
