package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
width: 16
artnet:
  listen: 0.0.0.0:6454
  outputs:
    - host: 10.0.0.5
      start_universe: 2
led:
  driver: spi
  x_flip_every_row: true
`), 0644))

	c, err := Load(path, Default())
	require.NoError(t, err)
	assert.Equal(t, 16, c.Width)
	assert.Equal(t, 32, c.Height)
	assert.Equal(t, 60, c.FPS)
	assert.Equal(t, "0.0.0.0:6454", c.Artnet.Listen)
	assert.Equal(t, 30.0, c.Artnet.RateLimitHz)
	require.Len(t, c.Artnet.Outputs, 1)
	assert.Equal(t, ArtnetOutput{Host: "10.0.0.5", StartUniverse: 2}, c.Artnet.Outputs[0])
	assert.Equal(t, "spi", c.LED.Driver)
	assert.True(t, c.LED.XFlipEveryRow)
	assert.Equal(t, "GRB", c.LED.ColorOrder)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := Default()
			want.Storage.Backend = "redis"
			want.Artnet.Outputs = []ArtnetOutput{{Host: "192.168.1.20", Port: 6454, StartUniverse: 1}}
			require.NoError(t, Save(path, want))

			got, err := Load(path, &Config{})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = ["), 0644))
	_, err = Load(path, Default())
	assert.Error(t, err)
}
