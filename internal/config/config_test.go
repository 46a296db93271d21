package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, DriverBigQuery, cfg.Store.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cleanup.GeneratedImageDelay)
	assert.Equal(t, 2*time.Minute, cfg.Cleanup.AnalyzedImageDelay)
	assert.Equal(t, 10*time.Second, cfg.Cleanup.SourcePDFDelay)
	assert.Equal(t, 30, cfg.Cleanup.SweepLimit)
	assert.Equal(t, 5*time.Second, cfg.Extraction.PollInterval)
	assert.Equal(t, 60, cfg.Extraction.MaxPolls)
	assert.Equal(t, "imageBot_generated_image", cfg.Storage.GeneratedImagePrefix)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GCS_BUCKET", "my-bucket")
	t.Setenv("IMAGEXBOT_STORE_DRIVER", "mongo")
	t.Setenv("IMAGEXBOT_EXTRACTION_POLL_INTERVAL", "250ms")

	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "my-bucket", cfg.Storage.Bucket)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Extraction.PollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory driver", mutate: func(c *Config) { c.Store.Driver = DriverMemory }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.Extraction.PollInterval = 0 }, wantErr: true},
		{name: "zero max polls", mutate: func(c *Config) { c.Extraction.MaxPolls = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Store.Driver = DriverMongo
			cfg.Extraction.PollInterval = time.Second
			cfg.Extraction.MaxPolls = 3
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
