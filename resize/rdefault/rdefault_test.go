package rdefault_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/resize/rdefault"
)

func TestResize(t *testing.T) {
	r := &rdefault.Resizer{}
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	for _, size := range []image.Point{{4, 3}, {16, 12}, {5, 7}} {
		m, err := r.Resize(src, size)
		require.NoError(t, err)
		assert.Equal(t, size, m.Bounds().Size())
	}

	ycc := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	m, err := r.Resize(ycc, image.Pt(4, 4))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 4), m.Bounds().Size())

	_, err = r.Resize(nil, image.Pt(1, 1))
	assert.Error(t, err)
	_, err = r.Resize(image.NewUniform(color.Black), image.Pt(0, 3))
	assert.Error(t, err)
}
