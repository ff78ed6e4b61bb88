package display

import (
	"time"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
	"github.com/liyigang86/drm-rga-demo/kms"
)

var ErrVBlankTimeout = errors.New(`timed out waiting for vertical blank`)

// SyncResult is the outcome of a vertical blank wait.
type SyncResult int

const (
	SyncCompleted SyncResult = iota
	SyncTimedOut
	SyncFailed
)

func (r SyncResult) String() string {
	switch r {
	case SyncCompleted:
		return `completed`
	case SyncTimedOut:
		return `timed out`
	}
	return `failed`
}

// Present shows bo on the selected plane, stretched over the whole mode,
// and blocks until the following vertical blank.
func (c *Context) Present(bo *BufferObject) error {
	if err := c.ready(); err != nil {
		return err
	}
	if bo == nil || bo.FbID == 0 {
		return errors.NilParam()
	}
	u := kms.PlaneUpdate{
		PlaneID: c.path.PlaneID,
		CrtcID:  c.path.CrtcID,
		FbID:    bo.FbID,
		CrtcW:   uint32(c.path.ModeSize.X),
		CrtcH:   uint32(c.path.ModeSize.Y),
		SrcW:    bo.Width << 16,
		SrcH:    bo.Height << 16,
	}
	logx.Debug(`display buffer`, c, `fb`, bo.FbID, `src`, [2]uint32{bo.Width, bo.Height}, `crtc`, [2]uint32{u.CrtcW, u.CrtcH})
	if err := c.dev.SetPlane(u); err != nil {
		return errors.WrapPrefix(err, `set plane`, 0)
	}
	res, err := c.WaitVBlank()
	if res != SyncCompleted {
		return err
	}
	c.presented++
	return nil
}

// WaitVBlank requests an event for the next vertical blank on the selected
// pipe and waits for it at most the configured timeout. Events that don't
// answer this request are dropped.
func (c *Context) WaitVBlank() (SyncResult, error) {
	if err := c.ready(); err != nil {
		return SyncFailed, err
	}
	c.token++
	req := kms.VBlankRequestFor(c.path.Pipe, c.token)
	if err := c.dev.WaitVBlank(req); err != nil {
		return SyncFailed, errors.WrapPrefix(err, `wait vblank`, 0)
	}
	deadline := time.Now().Add(c.cfg.VBlankTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return SyncTimedOut, errors.New(ErrVBlankTimeout)
		}
		events, err := c.dev.ReadEvents(remaining)
		if err != nil {
			return SyncFailed, errors.WrapPrefix(err, `read events`, 0)
		}
		for _, ev := range events {
			if ev.Type == kms.EventVBlank && ev.UserData == req.Signal {
				return SyncCompleted, nil
			}
			logx.Debug(`ignoring event`, c, `type`, ev.Type, `user_data`, ev.UserData)
		}
	}
}
