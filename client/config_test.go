package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	b := []byte(`
	{
		"url": "https://node.example/",
		"database": "test.db",
		"auth_scheme": "Bearer",
		"timeout_seconds": 5,
		"rate_per_second": 2.5,
		"burst": 3,
		"cache_ttl_seconds": 30,
		"trace": true,
		"syndication": {
			"feed": "https://blog.example/index.xml",
			"visibility": "FRIENDS",
			"schedule": "@hourly"
		},
		"nodes": [
			{
				"host": "remote.example",
				"username": "node",
				"password": "pw"
			}
		]
	}`)
	cfg, err := ReadConfig(b)
	require.NoError(t, err)

	expected := Config{
		URL:             "https://node.example/",
		Database:        "test.db",
		AuthScheme:      "Bearer",
		TimeoutSeconds:  5,
		RatePerSecond:   2.5,
		Burst:           3,
		CacheTTLSeconds: 30,
		Trace:           true,
		Syndication: SyndicationConfig{
			Feed:       "https://blog.example/index.xml",
			Visibility: "FRIENDS",
			Schedule:   "@hourly",
		},
		Nodes: []NodeConfig{
			{Host: "remote.example", Username: "node", Password: "pw"},
		},
	}
	assert.Equal(t, expected, cfg)
	assert.Equal(t, "node.example", cfg.PublicHost())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
}

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig([]byte(`{"host": "override.example"}`))
	require.NoError(t, err)
	assert.Equal(t, "Token", cfg.AuthScheme)
	assert.Equal(t, 15, cfg.TimeoutSeconds)
	assert.Equal(t, "@every 15m", cfg.Syndication.Schedule)
	assert.Equal(t, "PUBLIC", cfg.Syndication.Visibility)
	assert.Equal(t, "override.example", cfg.PublicHost())
}

func TestReadConfig_Invalid(t *testing.T) {
	_, err := ReadConfig([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadConfig_YAML(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("url: http://yaml.example\nburst: 9\n"), 0600))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "http://yaml.example", cfg.URL)
	assert.Equal(t, 9, cfg.Burst)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:8000", cfg.URL)
	assert.Equal(t, "distrolace.db", cfg.Database)
}
