// Package blit defines the 2D engine used to convert and scale raw frames
// into scan-out buffers.
//
// Implementations register themselves on import:
//
//	import _ "github.com/liyigang86/drm-rga-demo/blit/rga"  // hardware, needs -tags rga
//	import _ "github.com/liyigang86/drm-rga-demo/blit/soft" // software
package blit

import (
	"image"
	"sort"
	"sync"

	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

var (
	ErrUnavailable       = errors.New(`blit engine unavailable`)
	ErrUnsupportedFormat = errors.New(`pixel format not supported by blit engine`)
	ErrShortBuffer       = errors.New(`surface data shorter than pitch*height`)
)

// Surface is a raw pixel buffer. Pitch is in bytes per row of the whole
// buffer, for planar formats that is Depth/8 bytes per pixel on average.
type Surface struct {
	Data          []byte
	Depth         int
	Width, Height int
	Pitch         int
}

func (s Surface) Format() (format.Format, error) { return format.ForDepth(s.Depth) }

// Stride is the row length in pixels as seen by a blit engine.
func (s Surface) Stride() int {
	if s.Depth <= 0 {
		return 0
	}
	return s.Pitch * 8 / s.Depth
}

// Size is the number of bytes the surface spans.
func (s Surface) Size() int { return s.Pitch * s.Height }

func (s Surface) Bounds() image.Rectangle { return image.Rect(0, 0, s.Width, s.Height) }

func (s Surface) Validate() error {
	if s.Width <= 0 || s.Height <= 0 || s.Pitch <= 0 {
		return errors.Errorf(`invalid surface geometry %dx%d pitch %d`, s.Width, s.Height, s.Pitch)
	}
	if _, err := s.Format(); err != nil {
		return err
	}
	if s.Stride() < s.Width {
		return errors.Errorf(`pitch %d too small for width %d at depth %d`, s.Pitch, s.Width, s.Depth)
	}
	if len(s.Data) < s.Size() {
		return errors.New(ErrShortBuffer)
	}
	return nil
}

// Blitter converts and scales src into dst.
// Init is called once before the first Blit, an error disables the engine.
type Blitter interface {
	Name() string
	Init() error
	Blit(src, dst Surface) error
	Close() error
}

// Resizer scales an image, used by software engines.
type Resizer interface {
	Resize(img image.Image, size image.Point) (image.Image, error)
}

var (
	blittersMu sync.Mutex
	blitters   = make(map[string]func() Blitter)
)

// Register makes a blit engine available by name. The constructor is
// called for every lookup so each display gets its own instance.
func Register(name string, newBlitter func() Blitter) {
	if len(name) == 0 || newBlitter == nil {
		return
	}
	blittersMu.Lock()
	defer blittersMu.Unlock()
	blitters[name] = newBlitter
}

// New returns a fresh instance of the named engine or nil.
func New(name string) Blitter {
	blittersMu.Lock()
	newBlitter, ok := blitters[name]
	blittersMu.Unlock()
	if !ok {
		return nil
	}
	return newBlitter()
}

func Names() []string {
	blittersMu.Lock()
	defer blittersMu.Unlock()
	names := make([]string, 0, len(blitters))
	for name := range blitters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameRGA is the hardware engine preferred by Default.
const NameRGA = `rga`

// Default returns the hardware engine if it was linked in, nil otherwise.
func Default() Blitter { return New(NameRGA) }
