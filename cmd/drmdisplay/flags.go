package main

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/blit/soft"
	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/resize/bild"
	"github.com/liyigang86/drm-rga-demo/resize/gift"
	"github.com/liyigang86/drm-rga-demo/resize/imaging"
	"github.com/liyigang86/drm-rga-demo/resize/nfnt"
	"github.com/liyigang86/drm-rga-demo/resize/rdefault"
	"github.com/liyigang86/drm-rga-demo/resize/rez"
	"github.com/liyigang86/drm-rga-demo/resize/xdraw"
)

// displayFlags are shared by every command that opens a display.
type displayFlags struct {
	device        string
	mode          string
	overlay       bool
	scale         bool
	copyOnly      bool
	blitter       string
	resizer       string
	outputDepth   int
	vblankTimeout time.Duration
	advanceOnFlip bool
}

func (f *displayFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.device, `device`, ``, `DRM device node (default: first card with resources)`)
	fs.StringVar(&f.mode, `mode`, `1920x1080`, `preferred mode WIDTHxHEIGHT`)
	fs.BoolVar(&f.overlay, `overlay`, false, `draw on an overlay plane of the active CRTC`)
	fs.BoolVar(&f.scale, `scale`, false, `allocate buffers at frame size and let the plane scale`)
	fs.BoolVar(&f.copyOnly, `copy`, false, `never use a blit engine`)
	fs.StringVar(&f.blitter, `blitter`, ``, `blit engine (`+strings.Join(blit.Names(), `, `)+`), default: hardware if usable, else soft`)
	fs.StringVar(&f.resizer, `resizer`, ``, `scaler of the soft blitter (`+strings.Join(resizerNames(), `, `)+`)`)
	fs.IntVar(&f.outputDepth, `output-depth`, 32, `scan-out depth, 0 keeps the frame depth`)
	fs.DurationVar(&f.vblankTimeout, `vblank-timeout`, display.DefaultVBlankTimeout, `vertical blank wait limit`)
	fs.BoolVar(&f.advanceOnFlip, `advance-on-present`, false, `only advance buffers after a completed present`)
}

func (f *displayFlags) options(logger *slog.Logger) (display.Options, error) {
	w, h, err := parseSize(f.mode)
	if err != nil {
		return nil, err
	}
	opts := display.Options{
		display.SetSLogger(logger),
		display.SetPreferredMode(w, h),
		display.SetScaling(f.scale),
		display.SetOutputDepth(f.outputDepth),
		display.SetVBlankTimeout(f.vblankTimeout),
	}
	if len(f.device) > 0 {
		opts = append(opts, display.SetDevicePath(f.device))
	}
	if f.overlay {
		opts = append(opts, display.SetPlaneRole(display.RoleOverlay))
	}
	if f.advanceOnFlip {
		opts = append(opts, display.SetAdvancePolicy(display.AdvanceOnPresent))
	}
	if f.copyOnly {
		return append(opts, display.SetRenderer(display.RendererCopy)), nil
	}
	b, err := f.newBlitter()
	if err != nil {
		return nil, err
	}
	return append(opts, display.SetBlitter(b)), nil
}

func (f *displayFlags) newBlitter() (blit.Blitter, error) {
	if len(f.blitter) == 0 {
		if b := blit.Default(); b != nil && len(f.resizer) == 0 {
			if err := b.Init(); err == nil {
				return b, nil
			}
		}
		r, err := resizerFor(f.resizer)
		if err != nil {
			return nil, err
		}
		return soft.New(r), nil
	}
	if f.blitter == soft.Name {
		r, err := resizerFor(f.resizer)
		if err != nil {
			return nil, err
		}
		return soft.New(r), nil
	}
	if len(f.resizer) > 0 {
		return nil, errors.Errorf(`--resizer needs --blitter %s`, soft.Name)
	}
	b := blit.New(f.blitter)
	if b == nil {
		return nil, errors.Errorf(`unknown blitter %q`, f.blitter)
	}
	return b, nil
}

var resizers = map[string]func() blit.Resizer{
	`rdefault`:      func() blit.Resizer { return &rdefault.Resizer{} },
	`rez`:           func() blit.Resizer { return rez.Resizer{} },
	`xdraw-nearest`: xdraw.NearestNeighbor,
	`xdraw-approx`:  xdraw.ApproxBiLinear,
	`xdraw-linear`:  xdraw.BiLinear,
	`xdraw-catmull`: xdraw.CatmullRom,
	`gift`:          func() blit.Resizer { return &gift.Resizer{} },
	`nfnt`:          func() blit.Resizer { return &nfnt.Resizer{} },
	`imaging`:       func() blit.Resizer { return &imaging.Resizer{} },
	`bild`:          func() blit.Resizer { return &bild.Resizer{} },
}

func resizerNames() []string { return slices.Sorted(maps.Keys(resizers)) }

// resizerFor returns the named scaler, the empty name selects the default.
func resizerFor(name string) (blit.Resizer, error) {
	if len(name) == 0 {
		return nil, nil
	}
	newResizer, ok := resizers[name]
	if !ok {
		return nil, errors.Errorf(`unknown resizer %q`, name)
	}
	return newResizer(), nil
}

func parseSize(s string) (int, int, error) {
	var w, h int
	if n, err := fmt.Sscanf(s, `%dx%d`, &w, &h); err != nil || n != 2 || w <= 0 || h <= 0 {
		return 0, 0, errors.Errorf(`invalid size %q`, s)
	}
	return w, h, nil
}
