package main

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/blit/soft"
)

func TestFPSMeter(t *testing.T) {
	now := time.Unix(0, 0)
	m := newFPSMeter(3, func() time.Time { return now })
	for i := 0; i < 2; i++ {
		now = now.Add(100 * time.Millisecond)
		_, ok := m.Tick()
		assert.False(t, ok)
	}
	now = now.Add(100 * time.Millisecond)
	fps, ok := m.Tick()
	require.True(t, ok)
	assert.InDelta(t, 10, fps, 1e-9)

	now = now.Add(time.Second)
	_, ok = m.Tick()
	assert.False(t, ok, `counter restarts after a report`)

	off := newFPSMeter(0, time.Now)
	_, ok = off.Tick()
	assert.False(t, ok)
}

func TestParseSize(t *testing.T) {
	w, h, err := parseSize(`1280x720`)
	require.NoError(t, err)
	assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})
	for _, s := range []string{``, `1280`, `0x720`, `axb`, `-1x5`} {
		_, _, err := parseSize(s)
		assert.Error(t, err, s)
	}
}

func TestResizers(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	for _, name := range resizerNames() {
		t.Run(name, func(t *testing.T) {
			r, err := resizerFor(name)
			require.NoError(t, err)
			require.NotNil(t, r)
			img, err := r.Resize(src, image.Pt(4, 2))
			require.NoError(t, err)
			assert.Equal(t, image.Pt(4, 2), img.Bounds().Size())
			cr, cg, cb, _ := img.At(img.Bounds().Min.X+1, img.Bounds().Min.Y+1).RGBA()
			for _, c := range []uint32{cr, cg, cb} {
				assert.GreaterOrEqual(t, c, uint32(0xf000))
			}
		})
	}
	r, err := resizerFor(``)
	assert.NoError(t, err)
	assert.Nil(t, r)
	_, err = resizerFor(`lanczos9`)
	assert.Error(t, err)
}

func TestNewBlitter(t *testing.T) {
	f := displayFlags{blitter: soft.Name, resizer: `xdraw-nearest`}
	b, err := f.newBlitter()
	require.NoError(t, err)
	assert.Equal(t, soft.Name, b.Name())
	require.NoError(t, b.Init())

	src := blit.Surface{Data: make([]byte, 2*2*4), Width: 2, Height: 2, Depth: 32, Pitch: 8}
	dst := blit.Surface{Data: make([]byte, 4*4*4), Width: 4, Height: 4, Depth: 32, Pitch: 16}
	for i := 0; i < len(src.Data); i += 4 {
		copy(src.Data[i:], []byte{0x10, 0x20, 0x30, 0})
	}
	require.NoError(t, b.Blit(src, dst))
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xff}, dst.Data[len(dst.Data)-4:])

	f = displayFlags{resizer: `gift`}
	b, err = f.newBlitter()
	require.NoError(t, err)
	assert.Equal(t, soft.Name, b.Name())

	f = displayFlags{blitter: blit.NameRGA}
	b, err = f.newBlitter()
	require.NoError(t, err)
	assert.Equal(t, blit.NameRGA, b.Name())

	for _, f := range []displayFlags{
		{blitter: `nope`},
		{blitter: blit.NameRGA, resizer: `rez`},
		{blitter: soft.Name, resizer: `nope`},
	} {
		_, err := f.newBlitter()
		assert.Error(t, err, `%+v`, f)
	}
}

func TestDisplayOptions(t *testing.T) {
	f := displayFlags{mode: `800x600`, copyOnly: true, vblankTimeout: time.Second, outputDepth: 32}
	opts, err := f.options(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	f.mode = `800`
	_, err = f.options(nil)
	assert.Error(t, err)

	f = displayFlags{mode: `800x600`, blitter: `nope`, vblankTimeout: time.Second}
	_, err = f.options(nil)
	assert.Error(t, err)
}
