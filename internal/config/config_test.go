package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/empi_test")
	os.Setenv("ENV", "development")
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("ENV")
	})
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.MatchThresholdLow != 0.60 || cfg.MatchThresholdHigh != 0.80 {
		t.Errorf("unexpected default thresholds: low=%v high=%v", cfg.MatchThresholdLow, cfg.MatchThresholdHigh)
	}
	if cfg.CandidateLimit != 20 {
		t.Errorf("expected default candidate limit 20, got %d", cfg.CandidateLimit)
	}
	if cfg.MatchWeights.BirthDate != 0.25 {
		t.Errorf("expected default birth date weight 0.25, got %v", cfg.MatchWeights.BirthDate)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_ThresholdOverride(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("MATCH_THRESHOLD_LOW", "0.5")
	os.Setenv("MATCH_THRESHOLD_HIGH", "0.9")
	defer func() {
		os.Unsetenv("MATCH_THRESHOLD_LOW")
		os.Unsetenv("MATCH_THRESHOLD_HIGH")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MatchThresholdLow != 0.5 || cfg.MatchThresholdHigh != 0.9 {
		t.Errorf("threshold override not applied: low=%v high=%v", cfg.MatchThresholdLow, cfg.MatchThresholdHigh)
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	cfg := &Config{
		Env:                "development",
		MatchThresholdLow:  0.8,
		MatchThresholdHigh: 0.6,
		CandidateLimit:     10,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when high threshold <= low threshold")
	}
}

func TestValidate_ProductionRequiresIssuer(t *testing.T) {
	cfg := &Config{
		Env:                "production",
		MatchThresholdLow:  0.6,
		MatchThresholdHigh: 0.8,
		CandidateLimit:     10,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when AUTH_ISSUER unset outside development")
	}

	cfg.AuthIssuer = "https://auth.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with issuer set: %v", err)
	}
}

func TestDefaultMatchWeights_SumToOne(t *testing.T) {
	w := DefaultMatchWeights()
	sum := w.NameFamily + w.NameGiven + w.BirthDate + w.Gender +
		w.Address + w.City + w.PostalCode + w.Phone + w.Email
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected weights to sum to 1.0, got %v", sum)
	}
}
