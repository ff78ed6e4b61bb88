// Package fbpool reads frames from a shared memory frame pool.
//
// The pool starts with a header, all fields little endian:
//
//	magic       [4]byte "FBPL"
//	width       int32
//	height      int32
//	depth       int32   bits per pixel
//	count       int32   number of frame buffers
//	buffer size int32   bytes per frame buffer
//	index       int32   buffer holding the latest frame, -1 for none
//
// Frame k starts at HeaderSize + k*buffer size.
package fbpool

import (
	"encoding/binary"
	"fmt"

	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

const (
	Magic      = `FBPL`
	HeaderSize = 4 + 6*4

	indexOffset = HeaderSize - 4
)

var (
	ErrBadMagic      = errors.New(`frame pool magic not found`)
	ErrInvalidHeader = errors.New(`invalid frame pool header`)
)

type Header struct {
	Width, Height int32
	Depth         int32
	Count         int32
	BufferSize    int32
	Index         int32
}

// ParseHeader decodes and validates the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.WrapPrefix(ErrInvalidHeader, fmt.Sprintf(`%d bytes`, len(b)), 0)
	}
	if string(b[:4]) != Magic {
		return Header{}, errors.New(ErrBadMagic)
	}
	le := binary.LittleEndian
	h := Header{
		Width:      int32(le.Uint32(b[4:])),
		Height:     int32(le.Uint32(b[8:])),
		Depth:      int32(le.Uint32(b[12:])),
		Count:      int32(le.Uint32(b[16:])),
		BufferSize: int32(le.Uint32(b[20:])),
		Index:      int32(le.Uint32(b[indexOffset:])),
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// AppendHeader encodes h after b, used by frame producers.
func AppendHeader(b []byte, h Header) []byte {
	b = append(b, Magic...)
	for _, v := range []int32{h.Width, h.Height, h.Depth, h.Count, h.BufferSize, h.Index} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

func (h Header) Validate() error {
	if h.Width <= 0 || h.Height <= 0 || h.Count <= 0 {
		return errors.WrapPrefix(ErrInvalidHeader, fmt.Sprintf(`%dx%d, %d buffers`, h.Width, h.Height, h.Count), 0)
	}
	if _, err := format.ForDepth(int(h.Depth)); err != nil {
		return err
	}
	if need := h.Pitch() * int(h.Height); int(h.BufferSize) < need {
		return errors.WrapPrefix(ErrInvalidHeader, fmt.Sprintf(`buffer size %d < %d`, h.BufferSize, need), 0)
	}
	return nil
}

// Pitch is the row length of a frame in bytes, frames are tightly packed.
func (h Header) Pitch() int { return int(h.Width) * int(h.Depth) / 8 }

// Size is the number of bytes the whole pool spans.
func (h Header) Size() int { return HeaderSize + int(h.Count)*int(h.BufferSize) }

func (h Header) frameOffset(index int32) int { return HeaderSize + int(index)*int(h.BufferSize) }

// Frame is a view into a pool buffer. Data stays valid until the Source
// is closed but may be overwritten by the producer at any time.
type Frame struct {
	Index         int
	Data          []byte
	Width, Height int
	Depth         int
	Pitch         int
}

func (h Header) frame(mem []byte, index int32) Frame {
	off := h.frameOffset(index)
	return Frame{
		Index:  int(index),
		Data:   mem[off : off+int(h.BufferSize)],
		Width:  int(h.Width),
		Height: int(h.Height),
		Depth:  int(h.Depth),
		Pitch:  h.Pitch(),
	}
}
