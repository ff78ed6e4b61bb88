package rga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		depth   int
		want    surfFormat
		wantErr bool
	}{
		{12, formatYCbCr420SP, false},
		{16, formatRGB565, false},
		{32, formatBGRA8888, false},
		{24, formatNone, true},
		{8, formatNone, true},
	}
	for _, tt := range tests {
		got, err := formatFor(tt.depth)
		assert.Equal(t, tt.want, got, `depth %d`, tt.depth)
		if tt.wantErr {
			assert.True(t, errors.Is(err, blit.ErrUnsupportedFormat), `depth %d`, tt.depth)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestRectFor(t *testing.T) {
	// NV12 1920x1080 in a dumb buffer with a 2880 byte pitch
	s := blit.Surface{Data: make([]byte, 2880*1080), Depth: 12, Width: 1920, Height: 1080, Pitch: 2880}
	r, err := rectFor(s)
	require.NoError(t, err)
	assert.Equal(t, rect{width: 1920, height: 1080, wstride: 1920, hstride: 1080, format: formatYCbCr420SP}, r)

	s = blit.Surface{Data: make([]byte, 1312*2*10), Depth: 16, Width: 1280, Height: 10, Pitch: 1312 * 2}
	r, err = rectFor(s)
	require.NoError(t, err)
	assert.Equal(t, 1312, r.wstride)

	s = blit.Surface{Data: make([]byte, 3*4*4), Depth: 24, Width: 4, Height: 4, Pitch: 12}
	_, err = rectFor(s)
	assert.Error(t, err)
}

func TestBlitBeforeInit(t *testing.T) {
	b := &Blitter{}
	s := blit.Surface{Data: make([]byte, 16), Depth: 32, Width: 2, Height: 2, Pitch: 8}
	assert.True(t, errors.Is(b.Blit(s, s), blit.ErrUnavailable))
	assert.NoError(t, b.Close())
}

func TestRegistered(t *testing.T) {
	b := blit.Default()
	require.NotNil(t, b)
	assert.Equal(t, blit.NameRGA, b.Name())
}
