package display

import (
	"fmt"
	"log/slog"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
)

var ErrGeometryMismatch = errors.New(`source geometry differs from the scan-out buffer`)

// Render writes one frame into the current buffer and presents it.
// The pool advances according to the advance policy whatever the outcome.
func (c *Context) Render(buf []byte, depth, width, height, pitch int) error {
	if err := c.ready(); err != nil {
		return err
	}
	presented := false
	defer func() {
		if presented || c.cfg.Advance == AdvanceAlways {
			c.pool.Advance()
		}
	}()

	bo := c.pool.Current()
	src := blit.Surface{Data: buf, Depth: depth, Width: width, Height: height, Pitch: pitch}
	if err := c.draw(src, bo); err != nil {
		logx.IsErr(err, c, slog.LevelError, `buffer`, c.pool.Index())
		return err
	}
	if err := c.Present(bo); err != nil {
		logx.IsErr(err, c, slog.LevelError, `buffer`, c.pool.Index())
		return err
	}
	presented = true
	return nil
}

// draw converts src into bo with the blit engine, falling back to a plain
// copy when the geometry matches exactly.
func (c *Context) draw(src blit.Surface, bo *BufferObject) error {
	dst := bo.Surface()
	var errAccel error
	if b := c.accelerator(); b != nil {
		if errAccel = b.Blit(src, dst); errAccel == nil {
			return nil
		}
		logx.IsErr(errAccel, c, slog.LevelDebug, `blitter`, b.Name())
	}
	if src.Depth != dst.Depth || src.Pitch != dst.Pitch ||
		src.Width != dst.Width || src.Height != dst.Height {
		err := errors.WrapPrefix(ErrGeometryMismatch, fmt.Sprintf(
			`source %dx%d depth %d pitch %d, buffer %dx%d depth %d pitch %d`,
			src.Width, src.Height, src.Depth, src.Pitch,
			dst.Width, dst.Height, dst.Depth, dst.Pitch), 0)
		return errors.Join(errAccel, err)
	}
	n := dst.Size()
	if len(src.Data) < n {
		return errors.Join(errAccel, errors.New(blit.ErrShortBuffer))
	}
	copy(dst.Data[:n], src.Data[:n])
	return nil
}

// accelerator returns the blit engine if it is enabled and initialized.
// The engine is probed once, a failed probe disables it for the lifetime
// of the Context.
func (c *Context) accelerator() blit.Blitter {
	if c.cfg.Renderer != RendererAccel || c.accelDisabled {
		return nil
	}
	if !c.accelProbed {
		c.accelProbed = true
		if c.blitter == nil {
			c.blitter = blit.Default()
		}
		if c.blitter == nil {
			logx.Info(`no blit engine available, copying frames`, c)
			c.accelDisabled = true
			return nil
		}
		if err := c.blitter.Init(); err != nil {
			logx.Warn(`blit engine disabled`, c, `blitter`, c.blitter.Name(), `error`, err.Error())
			c.accelDisabled = true
			return nil
		}
		logx.Debug(`blit engine ready`, c, `blitter`, c.blitter.Name())
	}
	return c.blitter
}
