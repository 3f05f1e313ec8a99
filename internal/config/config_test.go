package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatguard/pkg/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.Model)
	assert.Equal(t, 8*time.Second, cfg.ClassifierTimeout())
	assert.InDelta(t, 0.6, cfg.Classifier.ReviewThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Classifier.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerCooldown())
	assert.Equal(t, "Maestro", cfg.Bot.Name)
	assert.Equal(t, "@maestro", cfg.Bot.Handle)
	assert.Equal(t, 5*time.Minute, cfg.AmbientCooldown())
	assert.InDelta(t, 0.2, cfg.Bot.AmbientProbability, 1e-9)
	assert.Equal(t, map[models.ViolationCategory]bool{models.ViolationHateSpeech: true}, cfg.AutoRejectCategories())
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beatguard.toml")
	content := `
[server]
port = 9999

[bot]
name = "Tempo"
handle = "@tempo"
ambient_probability = 0.5

[prefilter]
auto_reject = ["hate_speech", "nsfw"]

[[prefilter.rules]]
id = "contact-email"
category = "contact_info_email"
pattern = '[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}'
mask = "full_mask"
severity = "high"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "Tempo", cfg.Bot.Name)
	assert.InDelta(t, 0.5, cfg.Bot.AmbientProbability, 1e-9)

	// Defaults still fill in sections the file omitted.
	assert.Equal(t, 8, cfg.Classifier.TimeoutSeconds)

	autoReject := cfg.AutoRejectCategories()
	assert.True(t, autoReject[models.ViolationHateSpeech])
	assert.True(t, autoReject[models.ViolationNSFW])

	require.Len(t, cfg.Prefilter.Rules, 1)
	rule := cfg.Prefilter.Rules[0]
	assert.Equal(t, "contact-email", rule.ID)
	assert.Equal(t, models.ViolationContactEmail, rule.Category)
	assert.Equal(t, models.MaskFull, rule.Mask)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BEATGUARD_SERVER_PORT", "7070")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.Classifier.TimeoutSeconds = 0
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Classifier.ReviewThreshold = 1.5
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Bot.AmbientProbability = -0.1
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Bot.Name = ""
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Prefilter.Rules = []models.PatternRule{{ID: "r1"}}
	assert.Error(t, Validate(cfg), "a rule needs a pattern or a phrase")
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beatguard.toml")

	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, "Maestro", cfg.Bot.Name)

	// Refuses to overwrite an existing file.
	assert.Error(t, InitConfig(path))
}
