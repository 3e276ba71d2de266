package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/scholarquest/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 100, cfg.Game.StudyEnergy.Max)
	assert.Equal(t, 3*time.Minute, cfg.Game.StudyEnergy.Regen)
	assert.Equal(t, 5, cfg.Game.Market.FeePercent)
	assert.Equal(t, time.Hour, cfg.Game.Event.Duration)
	require.Contains(t, cfg.Game.Event.Tiers, "top10")
	assert.Equal(t, config.TierReward{Cash: 5000, XP: 1000}, cfg.Game.Event.Tiers["top10"])
	assert.Equal(t, config.TierReward{Cash: 100, XP: 50}, cfg.Game.Event.Tiers["participation"])
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
  admin_key: secret
game:
  study:
    cooldown: 1s
  market:
    fee_percent: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminKey)
	assert.Equal(t, time.Second, cfg.Game.Study.Cooldown)
	assert.Equal(t, 10, cfg.Game.Market.FeePercent)
	// untouched keys keep their defaults
	assert.Equal(t, 7, cfg.Game.Market.ListingDays)
	assert.Equal(t, 1.5, cfg.Game.CharacterCurve.Exponent)
}

func TestLoad_ShippedFile(t *testing.T) {
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Game, cfg.Game)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
