package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	// Matching configuration: classification band [low, high) and the
	// candidate search cap. Field weights have code defaults and can be
	// tuned per deployment.
	MatchThresholdLow  float64 `mapstructure:"MATCH_THRESHOLD_LOW"`
	MatchThresholdHigh float64 `mapstructure:"MATCH_THRESHOLD_HIGH"`
	CandidateLimit     int     `mapstructure:"CANDIDATE_LIMIT"`

	MatchWeights MatchWeights `mapstructure:"-"`
}

// MatchWeights configures the relative contribution of each compared field
// to the aggregate similarity score.
type MatchWeights struct {
	NameFamily float64 `mapstructure:"WEIGHT_NAME_FAMILY"`
	NameGiven  float64 `mapstructure:"WEIGHT_NAME_GIVEN"`
	BirthDate  float64 `mapstructure:"WEIGHT_BIRTH_DATE"`
	Gender     float64 `mapstructure:"WEIGHT_GENDER"`
	Address    float64 `mapstructure:"WEIGHT_ADDRESS"`
	City       float64 `mapstructure:"WEIGHT_CITY"`
	PostalCode float64 `mapstructure:"WEIGHT_POSTAL_CODE"`
	Phone      float64 `mapstructure:"WEIGHT_PHONE"`
	Email      float64 `mapstructure:"WEIGHT_EMAIL"`
}

// DefaultMatchWeights returns the default field weights. Birth date and
// family name dominate; contact details corroborate.
func DefaultMatchWeights() MatchWeights {
	return MatchWeights{
		NameFamily: 0.25,
		NameGiven:  0.15,
		BirthDate:  0.25,
		Gender:     0.05,
		Address:    0.08,
		City:       0.04,
		PostalCode: 0.08,
		Phone:      0.06,
		Email:      0.04,
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MATCH_THRESHOLD_LOW", 0.60)
	v.SetDefault("MATCH_THRESHOLD_HIGH", 0.80)
	v.SetDefault("CANDIDATE_LIMIT", 20)

	dw := DefaultMatchWeights()
	v.SetDefault("WEIGHT_NAME_FAMILY", dw.NameFamily)
	v.SetDefault("WEIGHT_NAME_GIVEN", dw.NameGiven)
	v.SetDefault("WEIGHT_BIRTH_DATE", dw.BirthDate)
	v.SetDefault("WEIGHT_GENDER", dw.Gender)
	v.SetDefault("WEIGHT_ADDRESS", dw.Address)
	v.SetDefault("WEIGHT_CITY", dw.City)
	v.SetDefault("WEIGHT_POSTAL_CODE", dw.PostalCode)
	v.SetDefault("WEIGHT_PHONE", dw.Phone)
	v.SetDefault("WEIGHT_EMAIL", dw.Email)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "CORS_ORIGINS",
		"MATCH_THRESHOLD_LOW", "MATCH_THRESHOLD_HIGH", "CANDIDATE_LIMIT",
		"WEIGHT_NAME_FAMILY", "WEIGHT_NAME_GIVEN", "WEIGHT_BIRTH_DATE",
		"WEIGHT_GENDER", "WEIGHT_ADDRESS", "WEIGHT_CITY",
		"WEIGHT_POSTAL_CODE", "WEIGHT_PHONE", "WEIGHT_EMAIL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.MatchWeights = MatchWeights{
		NameFamily: v.GetFloat64("WEIGHT_NAME_FAMILY"),
		NameGiven:  v.GetFloat64("WEIGHT_NAME_GIVEN"),
		BirthDate:  v.GetFloat64("WEIGHT_BIRTH_DATE"),
		Gender:     v.GetFloat64("WEIGHT_GENDER"),
		Address:    v.GetFloat64("WEIGHT_ADDRESS"),
		City:       v.GetFloat64("WEIGHT_CITY"),
		PostalCode: v.GetFloat64("WEIGHT_POSTAL_CODE"),
		Phone:      v.GetFloat64("WEIGHT_PHONE"),
		Email:      v.GetFloat64("WEIGHT_EMAIL"),
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the matching configuration is coherent. The
// classification thresholds must form a proper band inside (0, 1] and the
// candidate limit must be positive.
func (c *Config) Validate() error {
	if c.MatchThresholdLow <= 0 || c.MatchThresholdLow >= 1 {
		return fmt.Errorf("MATCH_THRESHOLD_LOW must be in (0, 1), got %v", c.MatchThresholdLow)
	}
	if c.MatchThresholdHigh <= c.MatchThresholdLow || c.MatchThresholdHigh > 1 {
		return fmt.Errorf("MATCH_THRESHOLD_HIGH must be in (MATCH_THRESHOLD_LOW, 1], got %v", c.MatchThresholdHigh)
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("CANDIDATE_LIMIT must be positive, got %d", c.CandidateLimit)
	}
	if !c.IsDev() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER must be set when ENV is not development (current ENV=%q)", c.Env)
	}
	return nil
}
