package display_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/testutil/fakekms"
)

func TestPoolRing(t *testing.T) {
	dev := fakekms.New()
	p, err := display.NewPool(dev, 3, 16, 32, 16)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	assert.Equal(t, 16, p.Depth())

	seen := map[uint32]bool{}
	for k := 0; k < 7; k++ {
		assert.Equal(t, k%3, p.Index())
		bo := p.Current()
		require.NotNil(t, bo)
		assert.Equal(t, uint32(32), bo.Width)
		assert.Equal(t, uint32(16), bo.Height)
		seen[bo.FbID] = true
		p.Advance()
	}
	assert.Len(t, seen, 3)

	require.NoError(t, p.Release())
	assert.Zero(t, dev.Leaks())
	assert.Nil(t, p.Current())
	assert.Zero(t, p.Len())
}

func TestPoolBufferCount(t *testing.T) {
	for _, count := range []int{0, -1, display.MaxBuffers + 1} {
		dev := fakekms.New()
		_, err := display.NewPool(dev, count, 32, 16, 16)
		assert.True(t, errors.Is(err, display.ErrBufferCount), `count %d`, count)
		assert.Empty(t, dev.Calls)
	}
}

func TestPoolRollback(t *testing.T) {
	dev := fakekms.New()
	dev.CreateDumbLimit = 2
	p, err := display.NewPool(dev, 3, 32, 16, 16)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, fakekms.ErrInjected))
	assert.Zero(t, dev.Leaks())
	assert.Contains(t, dev.Calls, `destroy_dumb:1`)
	assert.Contains(t, dev.Calls, `destroy_dumb:2`)
}
