// Package display is the scan-out engine: it selects a display path,
// allocates a ring of scan-out buffers, renders frames into them and
// presents them synchronized to the vertical blank.
//
// A Context is not safe for concurrent use.
package display

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal"
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
	"github.com/liyigang86/drm-rga-demo/kms"
	"github.com/liyigang86/drm-rga-demo/kms/card"
)

var _ logx.LoggerProvider = (*Context)(nil)

type Context struct {
	cfg     Config
	dev     kms.Device
	logger  *slog.Logger
	blitter blit.Blitter
	closer  internal.Closer

	path      *Path
	dummy     *BufferObject
	pool      *Pool
	frameSize image.Point

	accelProbed   bool
	accelDisabled bool
	token         uint64
	presented     uint64
}

// New opens the device, selects a display path and allocates count
// buffers of the given depth. width and height are only used as buffer
// size when scaling is enabled. On failure everything acquired so far is
// released again.
func New(count, depth, width, height int, opts ...Option) (*Context, error) {
	if err := checkBufferCount(count); err != nil {
		return nil, err
	}
	c := &Context{cfg: defaultConfig(), closer: internal.NewCloser()}
	if err := c.SetOptions(opts...); err != nil {
		return nil, err
	}
	if err := c.init(count, depth, width, height); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Context) init(count, depth, width, height int) error {
	if err := c.openDevice(); err != nil {
		return err
	}

	outDepth := depth
	if c.cfg.OutputDepth != 0 {
		outDepth = c.cfg.OutputDepth
	}
	pix, err := format.ForDepth(outDepth)
	if err != nil {
		return err
	}
	if c.cfg.Scaling && (width <= 0 || height <= 0) {
		return errors.Errorf(`invalid scaling target %dx%d`, width, height)
	}
	if err := c.setupPath(pix); err != nil {
		return errors.WrapPrefix(err, `display setup`, 0)
	}

	c.frameSize = c.path.ModeSize
	if c.cfg.Scaling {
		c.frameSize = image.Pt(width, height)
	}
	err = logx.TimeIt(func() error {
		pool, err := NewPool(c.dev, count, outDepth, uint32(c.frameSize.X), uint32(c.frameSize.Y))
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}, `allocate buffers`, c, `count`, count, `depth`, outDepth, `size`, c.frameSize)
	if err != nil {
		return errors.WrapPrefix(err, `alloc buffers`, 0)
	}
	c.closer.OnClose(func() error {
		logx.Debug(`free buffers`, c, `count`, c.pool.Len(), `depth`, c.pool.Depth())
		err := c.pool.Release()
		c.pool = nil
		return err
	})
	logx.Info(`display initialized`, c, `path`, c.path.String(), `buffers`, count, `depth`, outDepth, `size`, c.frameSize)
	return nil
}

func (c *Context) openDevice() error {
	if c.dev == nil {
		var (
			dev kms.Device
			err error
		)
		if len(c.cfg.DevicePath) > 0 {
			dev, err = openCard(c.cfg.DevicePath)
		} else {
			dev, err = discoverCard()
		}
		if err != nil {
			return errors.WrapPrefix(err, `open device`, 0)
		}
		c.dev = dev
	}
	dev := c.dev
	c.closer.OnClose(func() error {
		c.dev = nil
		return dev.Close()
	})
	// older kernels lack these, selection copes without
	for _, capability := range []uint64{kms.ClientCapAtomic, kms.ClientCapUniversalPlanes} {
		if err := dev.SetClientCap(capability, 1); err != nil {
			logx.IsErr(err, c, slog.LevelDebug, `client_cap`, capability)
		}
	}
	return nil
}

func openCard(path string) (kms.Device, error) {
	cd, err := card.Open(path)
	if err != nil {
		return nil, err
	}
	return cd, nil
}

func discoverCard() (kms.Device, error) {
	cd, err := card.Discover()
	if err != nil {
		return nil, err
	}
	return cd, nil
}

// setupPath selects the display path and, for the primary role, mode-sets
// the connector on a placeholder buffer.
func (c *Context) setupPath(pix format.Format) error {
	path, err := SelectPath(c.dev, c.cfg, pix, c.logger)
	if err != nil {
		return err
	}
	if c.cfg.PlaneRole == RolePrimary {
		dummy, err := NewBufferObject(c.dev, uint32(path.ModeSize.X), uint32(path.ModeSize.Y), 32)
		if err != nil {
			return errors.WrapPrefix(err, `create dummy buffer`, 0)
		}
		c.dummy = dummy
		c.closer.OnClose(func() error {
			err := c.dummy.Destroy(c.dev)
			c.dummy = nil
			return err
		})
		logx.Debug(`set crtc`, c, `crtc`, path.CrtcID, `pipe`, path.Pipe, `connector`, path.ConnectorID, `fb`, dummy.FbID)
		mode := path.Mode
		if err := c.dev.SetCrtc(path.CrtcID, dummy.FbID, path.ConnectorID, &mode); err != nil {
			return errors.WrapPrefix(err, `set mode`, 0)
		}
	}
	c.path = path
	c.closer.OnClose(func() error {
		c.path = nil
		return nil
	})
	return nil
}

// Close releases the buffers, the display path and the device in that
// order. It can be called more than once.
func (c *Context) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	if c.blitter != nil && c.accelProbed && !c.accelDisabled {
		c.closer.OnClose(c.blitter.Close)
	}
	c.accelProbed, c.accelDisabled = false, false
	err := c.closer.Close()
	logx.IsErr(err, c, slog.LevelWarn)
	return err
}

func (c *Context) Logger() *slog.Logger {
	if c == nil {
		return nil
	}
	return c.logger
}

func (c *Context) Config() Config { return c.cfg }

// Path returns the selected display path or nil.
func (c *Context) Path() *Path { return c.path }

func (c *Context) CrtcID() uint32 {
	if c == nil || c.path == nil {
		return 0
	}
	return c.path.CrtcID
}

func (c *Context) PlaneID() uint32 {
	if c == nil || c.path == nil {
		return 0
	}
	return c.path.PlaneID
}

func (c *Context) Pipe() int {
	if c == nil || c.path == nil {
		return 0
	}
	return c.path.Pipe
}

// FrameSize is the size of the scan-out buffers.
func (c *Context) FrameSize() image.Point { return c.frameSize }

func (c *Context) Pool() *Pool { return c.pool }

// Presented returns the number of frames shown so far.
func (c *Context) Presented() uint64 { return c.presented }

func (c *Context) ready() error {
	if c == nil || c.pool == nil || c.path == nil || c.dev == nil {
		return errors.New(consts.ErrNotInitialized)
	}
	return nil
}

func (c *Context) String() string {
	if c == nil {
		return `<nil>`
	}
	return fmt.Sprintf(`%s, %d buffers of %dx%d depth %d`, c.path, c.pool.Len(), c.frameSize.X, c.frameSize.Y, c.pool.Depth())
}
