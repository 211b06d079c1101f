package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/config"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestShardsCommand(t *testing.T) {
	out := run(t, "shards")
	assert.Equal(t, []string{"artnet", "bounce", "gradient", "randomcolorwalk", "ripple", "solid", "testpattern"},
		strings.Fields(out))
}

func TestInspectUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "state")
	cfg.Width, cfg.Height = 2, 2
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(path, cfg))

	out := run(t, "inspect", "--config", path, "--data", filepath.Join(dir, "ignored"))
	assert.Contains(t, out, "globals")
	assert.Contains(t, out, "brightness = 1")
	assert.Contains(t, out, "stack A")
	assert.Contains(t, out, "stack B")
	assert.DirExists(t, cfg.DataDir)
	assert.NoDirExists(t, filepath.Join(dir, "ignored"))
}

func TestFlagsApplyWithoutConfig(t *testing.T) {
	f := &flags{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		width:      8, height: 4, fps: 30,
		dataDir: "d", addr: ":1", logLevel: "warn", driver: "none",
	}
	cfg, err := f.load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, "none", cfg.LED.Driver)
	assert.Equal(t, "GRB", cfg.LED.ColorOrder)
}
