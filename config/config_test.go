package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rawbytedev/slab/pkg/binwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.RegistryOptions().Canonical)
	assert.Equal(t, uint16(binwire.FlagChecksum), cfg.BinaryFlags())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema:
  canonical: false
registry:
  prealloc: 64
log:
  level: debug
binary:
  compression: zstd
`), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	opts := cfg.RegistryOptions()
	assert.False(t, opts.Canonical)
	assert.Equal(t, 64, opts.Prealloc)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Binary.Checksum, "missing keys keep defaults")
	assert.Equal(t, uint16(binwire.FlagZstd|binwire.FlagChecksum), cfg.BinaryFlags())

	l, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestInvalid(t *testing.T) {
	_, err := Parse([]byte("registry:\n  prealloc: -1\nlog:\n  level: loud\nbinary:\n  compression: lz4\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry.prealloc")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "binary.compression")

	_, err = Parse([]byte("schema: [1"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Default())
	require.NoError(t, err)
	cfg, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
