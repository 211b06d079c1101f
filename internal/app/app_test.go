package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/config"
	"github.com/coreman2200/hidden-shades/internal/diagnostics"
	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Width, cfg.Height = 4, 4
	cfg.DataDir = t.TempDir()
	cfg.Addr = "127.0.0.1:0"
	cfg.Artnet.Listen = "127.0.0.1:0"
	cfg.Artnet.Outputs = []config.ArtnetOutput{{Host: "127.0.0.1", StartUniverse: 1}}
	return cfg
}

func TestBuildWiresComponents(t *testing.T) {
	c, err := Build(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Provider)
	assert.Equal(t, "sim", c.Driver)
	assert.Contains(t, c.Registry.List(), "artnet")

	_, err = c.Stacks.Active().Add(map[string]any{"shard_uuid": "solid"})
	require.NoError(t, err)
	require.NoError(t, c.Engine.RenderOnce())
	assert.Equal(t, uint64(1), c.Engine.Stats().Frames)

	w := httptest.NewRecorder()
	c.API.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/output/stack/A", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ids":["0"]`)
}

func TestFaultsBecomeDiagnostics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artnet.Listen = ""
	cfg.Artnet.Outputs = nil
	c, err := Build(cfg)
	require.NoError(t, err)
	defer c.Close()

	c.Registry.Register("broken", func(*layer.Layer) (layer.Shard, error) {
		return layer.ShardFunc(func(*layer.Layer) error { panic("bad frame") }), nil
	})
	_, err = c.Stacks.Active().Add(map[string]any{"shard_uuid": "broken"})
	require.NoError(t, err)

	ch, cancel := c.Diag.Subscribe()
	defer cancel()
	require.NoError(t, c.Engine.RenderOnce())
	d := <-ch
	assert.Equal(t, diagnostics.Err, d.Severity)
	assert.Equal(t, "LAYER.FAULT", d.Code)
	assert.Equal(t, "A", d.Evidence["stack"])
}

func TestRestoredLayerWithMissingShardIsKept(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artnet.Listen = ""
	cfg.Artnet.Outputs = nil

	c, err := Build(cfg)
	require.NoError(t, err)
	c.Registry.Register("temporary", func(*layer.Layer) (layer.Shard, error) {
		return layer.ShardFunc(func(*layer.Layer) error { return nil }), nil
	})
	_, err = c.Stacks.Active().Add(map[string]any{"shard_uuid": "temporary"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Build(cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []string{"0"}, c.Stacks.Active().IDs())
	require.NoError(t, c.Engine.RenderOnce())
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Artnet.Listen = ""
	cfg.Artnet.Outputs = nil
	cfg.Storage = config.Storage{Backend: "redis", RedisAddr: mr.Addr(), RedisPrefix: "test"}

	c, err := Build(cfg)
	require.NoError(t, err)
	_, err = c.Globals.Variables().Set("brightness", "0.4")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	s, err := store.DialRedis(mr.Addr(), "test")
	require.NoError(t, err)
	defer s.Close()
	b, err := s.Read("globals/vars/brightness")
	require.NoError(t, err)
	assert.Equal(t, "0.4", string(b))
}

func TestUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "tape"
	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	c, err := Build(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
