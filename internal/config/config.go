// Package config holds operator-level configuration for a veil
// installation: data directory, audit signing key, verifier endpoint,
// detection thresholds, and masking defaults. Everything is set via env
// vars (VEIL_*) or a config file (veil.config.yaml); there is no
// per-document configuration here.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/veilhq/veil/internal/cryptoutil"
	"github.com/veilhq/veil/internal/region"
)

// Viper keys. Each maps to an env var with the VEIL_ prefix
// (e.g. "signing_key" becomes VEIL_SIGNING_KEY) and to a YAML field in
// veil.config.yaml.
const (
	KeyDataDir         = "data_dir"
	KeySigningKey      = "signing_key"
	KeyPatternFile     = "pattern_file"
	KeyMinScore        = "min_score"
	KeyOllamaBaseURL   = "ollama_base_url"
	KeyVerifierModel   = "verifier_model"
	KeyVerifierEnabled = "verifier_enabled"
	KeyVerifierRPM     = "verifier_rpm"
	KeyDefaultStrategy = "default_strategy"
	KeyStrategies      = "strategies"
	KeyRedactMarker    = "redact_marker"
	KeyMaskChar        = "mask_char"
)

// Defaults that do not involve crypto material. The signing key has no
// baked-in default; when unset we derive a per-machine fallback and warn.
const (
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultVerifierModel = "llama3.2"
	DefaultVerifierRPM   = 30
	DefaultStrategyName  = "pseudo"
)

// Config holds resolved operator-level configuration for a veil process.
type Config struct {
	DataDir         string                     // base directory for all state (~/.veil)
	SigningKey      string                     // HMAC-SHA256 key for audit signing (>=32 bytes)
	PatternFile     string                     // optional global recognizer YAML
	MinScore        float64                    // pattern detector confidence floor (0 = default)
	OllamaBaseURL   string                     // verifier endpoint
	VerifierModel   string                     // verifier model name
	VerifierEnabled bool                       // run the LLM verification pass
	VerifierRPM     int                        // verifier rate limit, requests per minute
	DefaultStrategy region.Strategy            // strategy when a kind has no mapping
	Strategies      map[string]region.Strategy // kind to strategy overrides
	RedactMarker    string                     // marker text for redacted regions
	MaskChar        rune                       // fill character for masked regions

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true when the signing key was derived
// rather than set explicitly.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKey logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKey() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default VEIL_SIGNING_KEY, set it via env var or config file for production")
	}
}

// StrategyFor returns the masking strategy configured for a kind, falling
// back to the default strategy.
func (c *Config) StrategyFor(kind string) region.Strategy {
	if s, ok := c.Strategies[kind]; ok {
		return s
	}
	return c.DefaultStrategy
}

func init() {
	viper.SetEnvPrefix("VEIL")
	viper.AutomaticEnv()
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyVerifierModel, DefaultVerifierModel)
	viper.SetDefault(KeyVerifierRPM, DefaultVerifierRPM)
	viper.SetDefault(KeyDefaultStrategy, DefaultStrategyName)
	viper.SetDefault(KeyRedactMarker, "[REDACTED]")
	viper.SetDefault(KeyMaskChar, "*")
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	defaultStrategy, err := region.ParseStrategy(viper.GetString(KeyDefaultStrategy))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	strategies := make(map[string]region.Strategy)
	for kind, name := range viper.GetStringMapString(KeyStrategies) {
		s, err := region.ParseStrategy(name)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: strategy for kind %q: %w", kind, err)
		}
		strategies[kind] = s
	}

	maskChar := '*'
	if mc := viper.GetString(KeyMaskChar); mc != "" {
		maskChar = []rune(mc)[0]
	}

	cfg := &Config{
		DataDir:         resolveDataDir(),
		SigningKey:      viper.GetString(KeySigningKey),
		PatternFile:     viper.GetString(KeyPatternFile),
		MinScore:        viper.GetFloat64(KeyMinScore),
		OllamaBaseURL:   viper.GetString(KeyOllamaBaseURL),
		VerifierModel:   viper.GetString(KeyVerifierModel),
		VerifierEnabled: viper.GetBool(KeyVerifierEnabled),
		VerifierRPM:     viper.GetInt(KeyVerifierRPM),
		DefaultStrategy: defaultStrategy,
		Strategies:      strategies,
		RedactMarker:    viper.GetString(KeyRedactMarker),
		MaskChar:        maskChar,
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".veil"
	}
	return filepath.Join(home, ".veil")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong; it exists
// solely so `veil run` works out of the box while still signing audit
// records with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("veil:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be in [0,1] (got %g)", c.MinScore)
	}
	if c.VerifierRPM < 0 {
		return fmt.Errorf("verifier_rpm must not be negative")
	}
	if c.RedactMarker == "" {
		return fmt.Errorf("redact_marker must not be empty")
	}
	return nil
}

// validateSigningKey accepts either >=32 raw bytes or >=64 even-length hex
// characters decoding to at least 32 bytes. Hex is checked first so hex
// input gets hex validation; raw is accepted otherwise.
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 && cryptoutil.IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil || len(decoded) < 32 {
			return fmt.Errorf("signing_key hex must decode to at least 32 bytes: %w", err)
		}
		return nil
	}
	if n < 32 {
		return fmt.Errorf("signing_key must be at least 32 bytes (got %d); set VEIL_SIGNING_KEY", n)
	}
	return nil
}
