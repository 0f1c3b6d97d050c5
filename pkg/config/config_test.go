package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing uri", func(c *Config) { c.Source.URI = "" }, "source.uri"},
		{"missing database", func(c *Config) { c.Source.Database = "" }, "source.database"},
		{"unknown source", func(c *Config) { c.Source.Type = "csv" }, "source.type"},
		{"zero sample", func(c *Config) { c.Inference.SampleSize = 0 }, "sample_size"},
		{"zero workers", func(c *Config) { c.Inference.Workers = 0 }, "workers"},
		{"negative timeout", func(c *Config) { c.Inference.ReadTimeout = -time.Second }, "timeouts"},
		{"bad sampling", func(c *Config) { c.Inference.Sampling = "last" }, "sampling"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad compression", func(c *Config) { c.Output.Compression = "brotli" }, "output.compression"},
		{"empty destination", func(c *Config) { c.Output.Destination = "" }, "output.destination"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapescan.yaml")
	t.Setenv("TEST_MONGO_HOST", "db.internal")
	content := `
source:
  uri: mongodb://${TEST_MONGO_HOST}:27017/
  database: fromfile
  collections: [users, convos]
inference:
  sample_size: 25
  read_timeout: 5s
output:
  format: yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("SHAPESCAN_INFERENCE_SAMPLE_SIZE", "50")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "LibreChat", "")
	flags.Int("workers", 1, "")
	require.NoError(t, flags.Parse([]string{"--database", "fromflag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db.internal:27017/", cfg.Source.URI)
	assert.Equal(t, "fromflag", cfg.Source.Database)
	assert.Equal(t, []string{"users", "convos"}, cfg.Source.Collections)
	assert.Equal(t, 50, cfg.Inference.SampleSize)
	assert.Equal(t, 5*time.Second, cfg.Inference.ReadTimeout)
	assert.Equal(t, 1, cfg.Inference.Workers, "unset flag must not override defaults")
	assert.Equal(t, FormatYAML, cfg.Output.Format)
}

func TestLoadMongoURIFallback(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://env-host:27017/")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env-host:27017/", cfg.Source.URI)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inference:\n  workers: 0\n"), 0600))
	_, err = Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	cfg := Default()
	cfg.Source.Collections = []string{"messages"}
	cfg.Inference.ReadTimeout = 45 * time.Second
	cfg.Output.Compression = "zstd"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SUB_A", "x")
	assert.Equal(t, "x-y-", substituteEnvVars("${SUB_A}-y-${SUB_UNSET}"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}
