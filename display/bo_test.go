package display_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/testutil/fakekms"
)

func TestBufferObjectLayout(t *testing.T) {
	tests := []struct {
		depth       int
		format      format.Format
		planes      int
		pitch       uint32
		offset1     uint32
		bufferPitch uint32
	}{
		{depth: 12, format: format.NV12, planes: 2, pitch: 640, offset1: 640 * 480, bufferPitch: 960},
		{depth: 16, format: format.RGB565, planes: 1, pitch: 1280, bufferPitch: 1280},
		{depth: 24, format: format.XRGB8888, planes: 1, pitch: 1920, bufferPitch: 1920},
		{depth: 32, format: format.XRGB8888, planes: 1, pitch: 2560, bufferPitch: 2560},
	}
	for _, tt := range tests {
		dev := fakekms.New()
		bo, err := display.NewBufferObject(dev, 640, 480, tt.depth)
		require.NoError(t, err, `depth %d`, tt.depth)
		assert.Equal(t, tt.bufferPitch, bo.Pitch)
		assert.Len(t, bo.Data, int(bo.Size))
		assert.GreaterOrEqual(t, bo.DmaFD, 0)

		fb, ok := dev.FrameBuffers[bo.FbID]
		require.True(t, ok)
		assert.Equal(t, tt.format, fb.Format)
		assert.Equal(t, bo.Handle, fb.Handle)
		assert.Equal(t, tt.planes, fb.Layout.Planes)
		assert.Equal(t, tt.pitch, fb.Layout.Pitches[0], `depth %d`, tt.depth)
		if tt.planes == 2 {
			assert.Equal(t, tt.pitch, fb.Layout.Pitches[1])
			assert.Equal(t, tt.offset1, fb.Layout.Offsets[1])
		} else {
			assert.Zero(t, fb.Layout.Pitches[1])
		}

		assert.NoError(t, bo.Destroy(dev))
		assert.Zero(t, dev.Leaks())
	}
}

func TestBufferObjectUnsupportedDepth(t *testing.T) {
	dev := fakekms.New()
	_, err := display.NewBufferObject(dev, 64, 64, 8)
	assert.True(t, errors.Is(err, format.ErrUnsupportedDepth))
	assert.Empty(t, dev.Calls)
}

func TestBufferObjectDestroyOrder(t *testing.T) {
	dev := fakekms.New()
	bo, err := display.NewBufferObject(dev, 64, 64, 32)
	require.NoError(t, err)
	assert.Equal(t, []string{`create_dumb:1`, `map:1`, `add_fb:100`, `prime:10`}, dev.Calls)

	dev.Calls = nil
	require.NoError(t, bo.Destroy(dev))
	assert.Equal(t, []string{`close_fd:10`, `rm_fb:100`, `unmap`, `destroy_dumb:1`}, dev.Calls)

	// a second destroy has nothing left to release
	dev.Calls = nil
	assert.NoError(t, bo.Destroy(dev))
	assert.Empty(t, dev.Calls)
}

func TestBufferObjectPartialFailure(t *testing.T) {
	tests := []struct {
		name   string
		inject func(d *fakekms.Device)
		want   []string
	}{
		{
			name:   `create`,
			inject: func(d *fakekms.Device) { d.CreateDumbLimit = 0 },
			want:   []string{`create_dumb:fail`},
		},
		{
			name:   `map`,
			inject: func(d *fakekms.Device) { d.FailMap = true },
			want:   []string{`create_dumb:1`, `destroy_dumb:1`},
		},
		{
			name:   `add fb`,
			inject: func(d *fakekms.Device) { d.FailAddFB = true },
			want:   []string{`create_dumb:1`, `map:1`, `unmap`, `destroy_dumb:1`},
		},
		{
			name:   `prime`,
			inject: func(d *fakekms.Device) { d.FailPrime = true },
			want:   []string{`create_dumb:1`, `map:1`, `add_fb:100`, `rm_fb:100`, `unmap`, `destroy_dumb:1`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := fakekms.New()
			tt.inject(dev)
			bo, err := display.NewBufferObject(dev, 64, 64, 16)
			assert.Nil(t, bo)
			assert.True(t, errors.Is(err, fakekms.ErrInjected))
			assert.Equal(t, tt.want, dev.Calls)
			assert.Zero(t, dev.Leaks())
		})
	}
}
