// Package rga drives the Rockchip RGA 2D engine through librga.
//
// The engine is only linked when building with cgo and the rga build tag,
// otherwise Init always fails with [blit.ErrUnavailable] and callers are
// expected to fall back to another path.
package rga

import (
	"sync"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

func init() {
	blit.Register(blit.NameRGA, func() blit.Blitter { return &Blitter{} })
}

// surface formats understood by the engine
type surfFormat int

const (
	formatNone surfFormat = iota
	formatYCbCr420SP
	formatRGB565
	formatBGRA8888
)

func formatFor(depth int) (surfFormat, error) {
	switch depth {
	case 12:
		return formatYCbCr420SP, nil
	case 16:
		return formatRGB565, nil
	case 32:
		return formatBGRA8888, nil
	}
	return formatNone, errors.WrapPrefix(blit.ErrUnsupportedFormat, `rga`, 0)
}

// rect is the engine's view of a surface, strides are in pixels.
type rect struct {
	width, height    int
	wstride, hstride int
	format           surfFormat
}

func rectFor(s blit.Surface) (rect, error) {
	if err := s.Validate(); err != nil {
		return rect{}, err
	}
	f, err := formatFor(s.Depth)
	if err != nil {
		return rect{}, err
	}
	return rect{
		width:   s.Width,
		height:  s.Height,
		wstride: s.Stride(),
		hstride: s.Height,
		format:  f,
	}, nil
}

// the library keeps global state, initialize it once per process
var (
	engineOnce    sync.Once
	engineInitErr error
)

type Blitter struct {
	mu     sync.Mutex
	inited bool
}

var _ blit.Blitter = (*Blitter)(nil)

func (b *Blitter) Name() string { return blit.NameRGA }

func (b *Blitter) Init() error {
	if b == nil {
		return errors.NilReceiver()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	engineOnce.Do(func() { engineInitErr = engineInit() })
	if engineInitErr != nil {
		return engineInitErr
	}
	b.inited = true
	return nil
}

func (b *Blitter) Blit(src, dst blit.Surface) error {
	if b == nil {
		return errors.NilReceiver()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inited {
		return errors.New(blit.ErrUnavailable)
	}
	sr, err := rectFor(src)
	if err != nil {
		return err
	}
	dr, err := rectFor(dst)
	if err != nil {
		return err
	}
	return engineBlit(src.Data, sr, dst.Data, dr)
}

func (b *Blitter) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.inited = false
	b.mu.Unlock()
	return nil
}
