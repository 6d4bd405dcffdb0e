package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilhq/veil/internal/region"
)

// setBaseline pins every key a Load call reads, so tests do not leak viper
// state into each other.
func setBaseline(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	viper.Set(KeyDataDir, dataDir)
	viper.Set(KeySigningKey, strings.Repeat("k", 32))
	viper.Set(KeyPatternFile, "")
	viper.Set(KeyMinScore, 0.0)
	viper.Set(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.Set(KeyVerifierModel, DefaultVerifierModel)
	viper.Set(KeyVerifierEnabled, false)
	viper.Set(KeyVerifierRPM, DefaultVerifierRPM)
	viper.Set(KeyDefaultStrategy, DefaultStrategyName)
	viper.Set(KeyStrategies, map[string]string{})
	viper.Set(KeyRedactMarker, "[REDACTED]")
	viper.Set(KeyMaskChar, "*")
	return dataDir
}

func TestLoad_Explicit(t *testing.T) {
	dataDir := setBaseline(t)
	viper.Set(KeyMinScore, 0.7)
	viper.Set(KeyVerifierEnabled, true)
	viper.Set(KeyStrategies, map[string]string{"ssn": "redact", "phone": "mask"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 0.7, cfg.MinScore)
	assert.True(t, cfg.VerifierEnabled)
	assert.Equal(t, DefaultVerifierRPM, cfg.VerifierRPM)
	assert.Equal(t, region.StrategyPseudo, cfg.DefaultStrategy)
	assert.Equal(t, region.StrategyRedact, cfg.Strategies["ssn"])
	assert.Equal(t, region.StrategyMask, cfg.Strategies["phone"])
	assert.Equal(t, '*', cfg.MaskChar)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoad_DerivesSigningKeyWhenUnset(t *testing.T) {
	setBaseline(t)
	viper.Set(KeySigningKey, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsingDefaultSigningKey())
	// Derived key is 32 bytes hex-encoded and stable for the same data dir.
	assert.Len(t, cfg.SigningKey, 64)
	cfg2, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.SigningKey, cfg2.SigningKey)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "short signing key", key: KeySigningKey, value: "short"},
		{name: "min_score above one", key: KeyMinScore, value: 1.5},
		{name: "negative rpm", key: KeyVerifierRPM, value: -1},
		{name: "unknown default strategy", key: KeyDefaultStrategy, value: "shred"},
		{name: "unknown kind strategy", key: KeyStrategies, value: map[string]string{"ssn": "shred"}},
		{name: "empty redact marker", key: KeyRedactMarker, value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseline(t)
			viper.Set(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestConfig_StrategyFor(t *testing.T) {
	cfg := &Config{
		DefaultStrategy: region.StrategyPseudo,
		Strategies:      map[string]region.Strategy{"ssn": region.StrategyRedact},
	}
	assert.Equal(t, region.StrategyRedact, cfg.StrategyFor("ssn"))
	assert.Equal(t, region.StrategyPseudo, cfg.StrategyFor("email"))
}

func TestConfig_AuditDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/veil"}
	assert.Equal(t, filepath.Join("/var/lib/veil", "audit.db"), cfg.AuditDBPath())
}

func TestConfig_EnsureDataDir(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join(t.TempDir(), "nested", "veil")}
	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, cfg.DataDir)
}

func TestValidateSigningKey(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	assert.NoError(t, validateSigningKey(hexKey))
	assert.NoError(t, validateSigningKey(strings.Repeat("k", 32)))
	assert.Error(t, validateSigningKey("short"))
	assert.Error(t, validateSigningKey(strings.Repeat("k", 31)))
}

func TestDeriveDefaultKey(t *testing.T) {
	a := deriveDefaultKey("/data", "salt")
	assert.Equal(t, a, deriveDefaultKey("/data", "salt"))
	assert.NotEqual(t, a, deriveDefaultKey("/other", "salt"))
	assert.Len(t, a, 64)
}
