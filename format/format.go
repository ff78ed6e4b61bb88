// Package format holds the closed set of scan-out pixel formats and the
// plane layout each of them needs when a buffer is registered for scan-out.
package format

import (
	"fmt"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

var ErrUnsupportedDepth = errors.New(`unsupported pixel depth`)

type Format uint8

const (
	Unknown Format = iota
	// NV12 is 4:2:0 subsampled, luma plane followed by interleaved CbCr.
	NV12
	RGB565
	// XRGB8888 is used for both 24 and 32 bit sources, the X byte is ignored.
	XRGB8888
)

// MaxPlanes is the number of plane slots a framebuffer registration carries.
const MaxPlanes = 4

// Descriptor describes how a format is laid out in a single dumb buffer.
type Descriptor struct {
	Name   string
	FourCC uint32
	Planes int
	// the per-plane pitch is rawPitch * PitchNum / PitchDen
	PitchNum, PitchDen int
	// chroma subsampling factors, 1 for non-planar formats
	SubsampleX, SubsampleY int
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var descriptors = [...]Descriptor{
	Unknown:  {Name: `unknown`},
	NV12:     {Name: `NV12`, FourCC: fourcc('N', 'V', '1', '2'), Planes: 2, PitchNum: 2, PitchDen: 3, SubsampleX: 2, SubsampleY: 2},
	RGB565:   {Name: `RGB565`, FourCC: fourcc('R', 'G', '1', '6'), Planes: 1, PitchNum: 1, PitchDen: 1, SubsampleX: 1, SubsampleY: 1},
	XRGB8888: {Name: `XRGB8888`, FourCC: fourcc('X', 'R', '2', '4'), Planes: 1, PitchNum: 1, PitchDen: 1, SubsampleX: 1, SubsampleY: 1},
}

// ForDepth maps a bits-per-pixel value to its scan-out format.
func ForDepth(depth int) (Format, error) {
	switch depth {
	case 12:
		return NV12, nil
	case 16:
		return RGB565, nil
	case 24, 32:
		return XRGB8888, nil
	}
	return Unknown, errors.WrapPrefix(ErrUnsupportedDepth, fmt.Sprintf(`depth %d`, depth), 0)
}

func (f Format) Valid() bool { return f > Unknown && int(f) < len(descriptors) }

func (f Format) Descriptor() Descriptor {
	if !f.Valid() {
		return descriptors[Unknown]
	}
	return descriptors[f]
}

func (f Format) FourCC() uint32 { return f.Descriptor().FourCC }

func (f Format) String() string { return f.Descriptor().Name }

// Layout is the plane description handed to the framebuffer registration.
// All planes live in the same buffer object, so only pitches and offsets
// differ per plane.
type Layout struct {
	Planes  int
	Pitches [MaxPlanes]uint32
	Offsets [MaxPlanes]uint32
}

// Layout derives the plane layout from the pitch the kernel reported for a
// dumb buffer of the given height.
func (f Format) Layout(rawPitch, height uint32) (Layout, error) {
	if !f.Valid() {
		return Layout{}, errors.New(ErrUnsupportedDepth)
	}
	d := f.Descriptor()
	pitch := rawPitch * uint32(d.PitchNum) / uint32(d.PitchDen)
	var l Layout
	l.Planes = d.Planes
	for i := 0; i < d.Planes; i++ {
		l.Pitches[i] = pitch
	}
	if d.Planes == 2 {
		l.Offsets[1] = l.Pitches[0] * height
	}
	return l, nil
}
