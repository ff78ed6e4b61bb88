package fbpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func TestParseHeader(t *testing.T) {
	b := AppendHeader(nil, Header{Width: 640, Height: 480, Depth: 12, Count: 2, BufferSize: 640 * 480 * 3 / 2, Index: -1})
	require.Len(t, b, HeaderSize)
	h, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), h.Index)
	assert.Equal(t, 960, h.Pitch())
	assert.Equal(t, HeaderSize+2*460800, h.Size())

	mem := make([]byte, h.Size())
	copy(mem, b)
	f := h.frame(mem, 1)
	assert.Equal(t, 1, f.Index)
	assert.Len(t, f.Data, 460800)
	assert.Equal(t, 960, f.Pitch)
	assert.Equal(t, 12, f.Depth)
	f.Data[0] = 0xff
	assert.Equal(t, byte(0xff), mem[HeaderSize+460800])
}

func TestParseHeaderInvalid(t *testing.T) {
	valid := Header{Width: 4, Height: 4, Depth: 32, Count: 1, BufferSize: 64}
	tests := []struct {
		name   string
		header []byte
		err    error
	}{
		{`short`, AppendHeader(nil, valid)[:HeaderSize-1], ErrInvalidHeader},
		{`magic`, append([]byte(`XXXX`), AppendHeader(nil, valid)[4:]...), ErrBadMagic},
		{`width`, AppendHeader(nil, Header{Height: 4, Depth: 32, Count: 1, BufferSize: 64}), ErrInvalidHeader},
		{`count`, AppendHeader(nil, Header{Width: 4, Height: 4, Depth: 32, BufferSize: 64}), ErrInvalidHeader},
		{`depth`, AppendHeader(nil, Header{Width: 4, Height: 4, Depth: 8, Count: 1, BufferSize: 64}), format.ErrUnsupportedDepth},
		{`buffer size`, AppendHeader(nil, Header{Width: 4, Height: 4, Depth: 32, Count: 1, BufferSize: 63}), ErrInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.header)
			assert.True(t, errors.Is(err, tt.err), `%v`, err)
		})
	}
}
