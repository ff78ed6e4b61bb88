package display_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/testutil/fakekms"
	"github.com/liyigang86/drm-rga-demo/kms"
)

// smallDevice offers a single 64x32 mode so frames stay small.
func smallDevice() *fakekms.Device {
	dev := fakekms.NewStandard()
	dev.Connectors[10].Modes = []kms.Mode{fakekms.Mode(64, 32)}
	return dev
}

func frame(pitch, height int, fill byte) []byte {
	buf := make([]byte, pitch*height)
	for i := range buf {
		buf[i] = fill + byte(i)
	}
	return buf
}

func TestRenderCopyFallback(t *testing.T) {
	dev := smallDevice()
	dev.PitchAlign = 96
	c := newContext(t, dev, 2, 16)
	bo := c.Pool().Current()
	pitch := int(bo.Pitch)
	require.Equal(t, 192, pitch)

	src := frame(pitch, 32, 3)
	require.NoError(t, c.Render(src, 16, 64, 32, pitch))
	assert.Equal(t, src, bo.Data[:pitch*32])
	assert.Equal(t, uint64(1), c.Presented())
	assert.Equal(t, 1, c.Pool().Index())

	require.Len(t, dev.PlaneUpdates, 1)
	assert.Equal(t, bo.FbID, dev.PlaneUpdates[0].FbID)
}

func TestRenderGeometryMismatch(t *testing.T) {
	tests := []struct {
		name                        string
		depth, width, height, pitch int
	}{
		{`depth`, 32, 64, 32, 256},
		{`pitch`, 16, 64, 32, 256},
		{`width`, 16, 60, 32, 128},
		{`height`, 16, 64, 16, 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := smallDevice()
			c := newContext(t, dev, 2, 16, display.SetVBlankTimeout(time.Minute))
			bo := c.Pool().Current()
			require.Equal(t, uint32(128), bo.Pitch)

			start := time.Now()
			err := c.Render(frame(tt.pitch, tt.height, 1), tt.depth, tt.width, tt.height, tt.pitch)
			assert.True(t, errors.Is(err, display.ErrGeometryMismatch))
			assert.Less(t, time.Since(start), time.Second)
			// nothing written, nothing presented
			assert.Equal(t, make([]byte, len(bo.Data)), bo.Data)
			assert.Empty(t, dev.PlaneUpdates)
			assert.Empty(t, dev.VBlankRequests)
		})
	}
}

func TestRenderAdvance(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		dev := smallDevice()
		c := newContext(t, dev, n, 32)
		buf := frame(256, 32, 0)
		for k := 0; k < 10; k++ {
			if k%3 == 1 {
				assert.Error(t, c.Render(buf, 32, 63, 32, 256))
			} else {
				assert.NoError(t, c.Render(buf, 32, 64, 32, 256))
			}
			assert.Equal(t, (k+1)%n, c.Pool().Index(), `N=%d k=%d`, n, k+1)
		}
	}
}

func TestRenderAdvanceOnPresent(t *testing.T) {
	dev := smallDevice()
	c := newContext(t, dev, 3, 32, display.SetAdvancePolicy(display.AdvanceOnPresent))
	buf := frame(256, 32, 0)
	assert.Error(t, c.Render(buf, 32, 32, 32, 256))
	assert.Equal(t, 0, c.Pool().Index())
	assert.NoError(t, c.Render(buf, 32, 64, 32, 256))
	assert.Equal(t, 1, c.Pool().Index())

	dev.FailSetPlane = true
	assert.Error(t, c.Render(buf, 32, 64, 32, 256))
	assert.Equal(t, 1, c.Pool().Index())
}

func TestRenderAccelerator(t *testing.T) {
	dev := smallDevice()
	b := &fakeBlitter{}
	c := newContext(t, dev, 2, 32, display.SetBlitter(b))

	// scaled source, only the engine can handle it
	require.NoError(t, c.Render(frame(40, 10, 0), 16, 20, 10, 40))
	require.NoError(t, c.Render(frame(40, 10, 0), 16, 20, 10, 40))
	assert.Equal(t, 1, b.inits)
	assert.Equal(t, 2, b.blits)
	assert.Equal(t, byte(0x5a), c.Pool().Buffers()[0].Data[0])

	require.NoError(t, c.Close())
	assert.Equal(t, 1, b.closes)
}

func TestRenderAcceleratorFallback(t *testing.T) {
	dev := smallDevice()
	b := &fakeBlitter{blitErr: errors.New(`blit failed`)}
	c := newContext(t, dev, 2, 32, display.SetBlitter(b))

	src := frame(256, 32, 9)
	require.NoError(t, c.Render(src, 32, 64, 32, 256))
	assert.Equal(t, src, c.Pool().Buffers()[0].Data)

	err := c.Render(src, 32, 32, 32, 256)
	assert.True(t, errors.Is(err, display.ErrGeometryMismatch))
	assert.Equal(t, 2, b.blits)
}

func TestRenderAcceleratorProbedOnce(t *testing.T) {
	dev := smallDevice()
	b := &fakeBlitter{initErr: errors.New(`no engine`)}
	c := newContext(t, dev, 2, 32, display.SetBlitter(b))

	src := frame(256, 32, 0)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Render(src, 32, 64, 32, 256))
	}
	assert.Equal(t, 1, b.inits)
	assert.Zero(t, b.blits)

	require.NoError(t, c.Close())
	assert.Zero(t, b.closes)
}

func TestRenderCopyRenderer(t *testing.T) {
	dev := smallDevice()
	b := &fakeBlitter{}
	c := newContext(t, dev, 1, 32, display.SetBlitter(b), display.SetRenderer(display.RendererCopy))
	require.NoError(t, c.Render(frame(256, 32, 0), 32, 64, 32, 256))
	assert.Zero(t, b.inits)
	assert.Zero(t, b.blits)
}

func TestRenderShortSource(t *testing.T) {
	c := newContext(t, smallDevice(), 1, 32)
	assert.Error(t, c.Render(make([]byte, 100), 32, 64, 32, 256))
}

func TestRenderNotInitialized(t *testing.T) {
	var c *display.Context
	err := c.Render(nil, 32, 64, 32, 256)
	assert.True(t, errors.Is(err, consts.ErrNotInitialized))

	c = newContext(t, smallDevice(), 1, 32)
	require.NoError(t, c.Close())
	err = c.Render(make([]byte, 256*32), 32, 64, 32, 256)
	assert.True(t, errors.Is(err, consts.ErrNotInitialized))
}
