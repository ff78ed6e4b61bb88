// Package drmrga shows raw frames on a DRM/KMS display through a process
// wide default display.
//
//	if err := drmrga.Init(3, 32, 1920, 1080); err != nil {
//		return err
//	}
//	defer drmrga.Deinit()
//	for frame := range frames {
//		_ = drmrga.Render(frame.Data, 32, frame.Width, frame.Height, frame.Pitch)
//	}
//
// The hardware blit engine is linked when building with the rga tag.
// Errors are logged to stderr. Setting DRM_DEBUG in the environment logs
// all diagnostics to stdout instead.
package drmrga

import (
	"io"
	"log/slog"
	"os"
	"sync"

	_ "github.com/liyigang86/drm-rga-demo/blit/rga"
	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/environ"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
)

var (
	// chosen defaults
	env              = environ.OS()
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var (
	mu     sync.Mutex
	active *display.Context
)

// Init selects the display path and allocates count scan-out buffers of
// the given depth. width and height are the buffer size when scaling is
// enabled through opts. Init fails if the display is already initialized.
func Init(count, depth, width, height int, opts ...display.Option) error {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		return errors.New(consts.ErrAlreadyInitialized)
	}
	defaults := display.Options{display.SetSLogger(newLogger())}
	c, err := display.New(count, depth, width, height, append(defaults, opts...)...)
	if err != nil {
		return err
	}
	active = c
	return nil
}

// Render converts and presents one frame. The next call writes the next
// buffer of the ring, even when this one failed.
func Render(buf []byte, depth, width, height, pitch int) error {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		return errors.New(consts.ErrNotInitialized)
	}
	return active.Render(buf, depth, width, height, pitch)
}

// newLogger logs everything to stdout when DRM_DEBUG is set, otherwise
// only errors to stderr.
func newLogger() *slog.Logger {
	if logger := logx.FromEnv(env, stdout); logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Deinit releases the buffers, the display path and the device.
// It does nothing when the display isn't initialized.
func Deinit() {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		return
	}
	_ = active.Close()
	active = nil
}
