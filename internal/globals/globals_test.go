package globals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/store"
)

func TestDefaultsAndPersistence(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	g, err := New(s)
	require.NoError(t, err)

	assert.Equal(t, 1.0, g.Levels().Brightness)
	assert.Equal(t, 1.0, g.Levels().Gamma)
	assert.Len(t, g.Palette().Colors, 16)
	assert.Equal(t, uint8(0x40), g.Palette().Colors[0].A())
	assert.Equal(t, []string{"brightness", "gamma", "palette"}, g.Variables().Info().IDs)

	_, err = g.Variables().Set("brightness", "0.25")
	require.NoError(t, err)
	_, err = g.Variables().Set("gamma", "9")
	assert.Error(t, err)

	again, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, 0.25, again.Levels().Brightness)
	assert.Equal(t, 1.0, again.Levels().Gamma)
}
