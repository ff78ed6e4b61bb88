package display

import (
	"image"
	"log/slog"
	"time"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

// PlaneRole is the kind of plane frames are scanned out on.
type PlaneRole int

const (
	// RolePrimary mode-sets the connector and replaces its content.
	RolePrimary PlaneRole = iota
	// RoleOverlay composes on top of whatever the active CRTC shows.
	RoleOverlay
)

func (r PlaneRole) planeType() kms.PlaneType {
	if r == RoleOverlay {
		return kms.PlaneOverlay
	}
	return kms.PlanePrimary
}

func (r PlaneRole) String() string { return r.planeType().String() }

type RendererKind int

const (
	// RendererAccel tries the blit engine first and falls back to a copy.
	RendererAccel RendererKind = iota
	// RendererCopy only copies frames matching the buffer geometry.
	RendererCopy
)

func (k RendererKind) String() string {
	if k == RendererCopy {
		return `copy`
	}
	return `accel`
}

// AdvancePolicy decides when the pool moves on to its next buffer.
type AdvancePolicy int

const (
	// AdvanceAlways advances after every render call, a dropped frame
	// still consumes a slot.
	AdvanceAlways AdvancePolicy = iota
	// AdvanceOnPresent only advances after a frame was presented.
	AdvanceOnPresent
)

func (p AdvancePolicy) String() string {
	if p == AdvanceOnPresent {
		return `on-present`
	}
	return `always`
}

const DefaultVBlankTimeout = 3 * time.Second

// DefaultPreferredMode is picked when a connector offers it.
var DefaultPreferredMode = image.Pt(1920, 1080)

// Config is the runtime configuration of a Context.
type Config struct {
	PlaneRole PlaneRole
	Renderer  RendererKind
	// Scaling sizes the buffers to the requested frame size instead of the
	// mode and lets the plane scale them.
	Scaling       bool
	PreferredMode image.Point
	VBlankTimeout time.Duration
	Advance       AdvancePolicy
	// OutputDepth overrides the requested buffer depth, 0 keeps it.
	OutputDepth int
	// DevicePath skips card discovery.
	DevicePath string
}

func defaultConfig() Config {
	return Config{
		PlaneRole:     RolePrimary,
		Renderer:      RendererAccel,
		PreferredMode: DefaultPreferredMode,
		VBlankTimeout: DefaultVBlankTimeout,
		Advance:       AdvanceAlways,
	}
}

type Option interface {
	ApplyOption(c *Context) error
}

var _ Option = (OptFunc)(nil)

type OptFunc func(*Context) error

func (o OptFunc) ApplyOption(c *Context) error { return o(c) }

var _ Option = (Options)(nil)

type Options []Option

func (o Options) ApplyOption(c *Context) error { return c.SetOptions([]Option(o)...) }

func (c *Context) SetOptions(opts ...Option) error {
	if c == nil {
		return errors.NilReceiver()
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.ApplyOption(c); err != nil {
			return errors.New(err)
		}
	}
	return nil
}

func SetPlaneRole(role PlaneRole) Option {
	return OptFunc(func(c *Context) error {
		switch role {
		case RolePrimary, RoleOverlay:
		default:
			return errors.Errorf(`unknown plane role %d`, role)
		}
		c.cfg.PlaneRole = role
		return nil
	})
}
func SetRenderer(kind RendererKind) Option {
	return OptFunc(func(c *Context) error { c.cfg.Renderer = kind; return nil })
}
func SetScaling(enabled bool) Option {
	return OptFunc(func(c *Context) error { c.cfg.Scaling = enabled; return nil })
}

// SetBlitter replaces the blit engine, by default the hardware engine is used
// when it was linked in.
func SetBlitter(b blit.Blitter) Option {
	return OptFunc(func(c *Context) error { c.blitter = b; return nil })
}
func SetPreferredMode(width, height int) Option {
	return OptFunc(func(c *Context) error {
		if width <= 0 || height <= 0 {
			return errors.Errorf(`invalid preferred mode %dx%d`, width, height)
		}
		c.cfg.PreferredMode = image.Pt(width, height)
		return nil
	})
}
func SetVBlankTimeout(timeout time.Duration) Option {
	return OptFunc(func(c *Context) error {
		if timeout <= 0 {
			return errors.Errorf(`invalid vblank timeout %v`, timeout)
		}
		c.cfg.VBlankTimeout = timeout
		return nil
	})
}
func SetAdvancePolicy(p AdvancePolicy) Option {
	return OptFunc(func(c *Context) error { c.cfg.Advance = p; return nil })
}
func SetOutputDepth(depth int) Option {
	return OptFunc(func(c *Context) error { c.cfg.OutputDepth = depth; return nil })
}
func SetDevicePath(path string) Option {
	return OptFunc(func(c *Context) error { c.cfg.DevicePath = path; return nil })
}

// SetDevice hands an already opened device to the Context. If an option
// fails, New returns without touching the device and the caller keeps
// it. Once all options are applied the Context owns it and closes it on a
// later setup failure or in Close.
func SetDevice(dev kms.Device) Option {
	return OptFunc(func(c *Context) error {
		if dev == nil {
			return errors.NilParam(dev)
		}
		c.dev = dev
		return nil
	})
}
func SetSLogger(logger *slog.Logger) Option {
	return OptFunc(func(c *Context) error { c.logger = logger; return nil })
}
