package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, uint32(250), cfg.Platform.FeeBasisPoints)
	assert.Equal(t, "reject", cfg.Platform.Reregistration)
	assert.Equal(t, common.HexToAddress("0xaa"), cfg.Platform.OwnerAddress())
	assert.Equal(t, 30, cfg.Task.FinalizeInterval)
	assert.Equal(t, 25, cfg.Task.FinalizeBatch)

	// defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 300, cfg.Task.RetryInterval)
	assert.Equal(t, 50, cfg.Task.RetryBatch)
	assert.Equal(t, 4, cfg.Events.Workers)
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "postgres"},
		Platform: PlatformConfig{Owner: "0x00000000000000000000000000000000000000aa", Reregistration: "idempotent"},
		Issuer:   IssuerConfig{Mode: "log"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"bad owner":      func(c *Config) { c.Platform.Owner = "alice" },
		"fee too high":   func(c *Config) { c.Platform.FeeBasisPoints = 10001 },
		"unknown policy": func(c *Config) { c.Platform.Reregistration = "overwrite" },
		"unknown driver": func(c *Config) { c.Database.Driver = "mysql" },
		"chain no rpc":   func(c *Config) { c.Issuer.Mode = "chain" },
		"unknown issuer": func(c *Config) { c.Issuer.Mode = "mail" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
