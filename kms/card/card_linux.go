//go:build linux

// Package card implements kms.Device on top of a /dev/dri/card* node.
package card

import (
	"encoding/binary"
	"os"
	"time"
	"unsafe"

	"github.com/NeowayLabs/drm"
	"github.com/NeowayLabs/drm/ioctl"
	"github.com/NeowayLabs/drm/mode"
	"golang.org/x/sys/unix"

	"github.com/liyigang86/drm-rga-demo/internal/consts"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

var _ kms.Device = (*Card)(nil)

// Card is an open DRM device node.
type Card struct {
	file *os.File
	fd   uintptr
}

// Open opens the given device node.
func Open(path string) (*Card, error) {
	if len(path) == 0 {
		path = consts.DefaultDevicePath
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.New(err)
	}
	return newCard(f), nil
}

// Discover returns the first card node that can drive a display with dumb
// buffers and falls back to the well known primary node.
func Discover() (*Card, error) {
	for i := 0; i < consts.MaxCardIndex; i++ {
		f, err := drm.OpenCard(i)
		if err != nil {
			continue
		}
		if drm.HasDumbBuffer(f) {
			if res, err := mode.GetResources(f); err == nil && len(res.Crtcs) > 0 {
				return newCard(f), nil
			}
		}
		_ = f.Close()
	}
	return Open(consts.DefaultDevicePath)
}

func newCard(f *os.File) *Card { return &Card{file: f, fd: f.Fd()} }

func (c *Card) Name() string {
	if c == nil || c.file == nil {
		return ``
	}
	return c.file.Name()
}

func (c *Card) Close() error {
	if c == nil || c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return errors.NewErr(err)
}

func (c *Card) do(code uint32, arg unsafe.Pointer) error {
	if c == nil || c.file == nil {
		return errors.NilReceiver()
	}
	return retry(func() error { return ioctl.Do(c.fd, uintptr(code), uintptr(arg)) })
}

// retry repeats fn while the kernel reports an interrupted or busy call,
// like drmIoctl does.
func retry(fn func() error) error {
	for {
		err := fn()
		if err == nil || !(errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)) {
			return err
		}
	}
}

func (c *Card) SetClientCap(capability, value uint64) error {
	arg := sysSetClientCap{capability: capability, value: value}
	return errors.NewErr(c.do(ioctlSetClientCap, unsafe.Pointer(&arg)))
}

func (c *Card) Resources() (*kms.Resources, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	var res *mode.Resources
	err := retry(func() (err error) {
		res, err = mode.GetResources(c.file)
		return err
	})
	if err != nil {
		return nil, errors.New(err)
	}
	return &kms.Resources{
		Crtcs:      res.Crtcs,
		Connectors: res.Connectors,
		Encoders:   res.Encoders,
	}, nil
}

func (c *Card) Connector(id uint32) (*kms.Connector, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	var conn *mode.Connector
	err := retry(func() (err error) {
		conn, err = mode.GetConnector(c.file, id)
		return err
	})
	if err != nil {
		return nil, errors.New(err)
	}
	ret := &kms.Connector{
		ID:        conn.ID,
		EncoderID: conn.EncoderID,
		Status:    kms.ConnectionStatus(conn.Connection),
		Encoders:  conn.Encoders,
	}
	for _, m := range conn.Modes {
		// a connector without modes is reported with one zeroed mode
		if m.Hdisplay == 0 || m.Vdisplay == 0 {
			continue
		}
		ret.Modes = append(ret.Modes, modeFromInfo(m))
	}
	return ret, nil
}

func (c *Card) Encoder(id uint32) (*kms.Encoder, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	if id == 0 {
		return nil, errors.New(kms.ErrNotFound)
	}
	var enc *mode.Encoder
	err := retry(func() (err error) {
		enc, err = mode.GetEncoder(c.file, id)
		return err
	})
	if err != nil {
		return nil, errors.New(err)
	}
	return &kms.Encoder{
		ID:            enc.ID,
		CrtcID:        enc.CrtcID,
		PossibleCrtcs: enc.PossibleCrtcs,
	}, nil
}

func (c *Card) Crtc(id uint32) (*kms.Crtc, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	if id == 0 {
		return nil, errors.New(kms.ErrNotFound)
	}
	var crtc *mode.Crtc
	err := retry(func() (err error) {
		crtc, err = mode.GetCrtc(c.file, id)
		return err
	})
	if err != nil {
		return nil, errors.New(err)
	}
	return &kms.Crtc{
		ID:        crtc.ID,
		BufferID:  crtc.BufferID,
		Width:     crtc.Width,
		Height:    crtc.Height,
		ModeValid: crtc.ModeValid != 0,
		Mode:      modeFromInfo(crtc.Mode),
	}, nil
}

func (c *Card) PlaneIDs() ([]uint32, error) {
	arg := sysGetPlaneResources{}
	if err := c.do(ioctlModeGetPlaneResources, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.New(err)
	}
	if arg.countPlanes == 0 {
		return nil, nil
	}
	ids := make([]uint32, arg.countPlanes)
	arg.planeIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	if err := c.do(ioctlModeGetPlaneResources, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.New(err)
	}
	// planes might have vanished in between
	return ids[:min(int(arg.countPlanes), len(ids))], nil
}

func (c *Card) Plane(id uint32) (*kms.Plane, error) {
	arg := sysGetPlane{planeID: id}
	if err := c.do(ioctlModeGetPlane, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.New(err)
	}
	var formats []uint32
	if arg.countFormatTypes > 0 {
		formats = make([]uint32, arg.countFormatTypes)
		arg.formatTypePtr = uint64(uintptr(unsafe.Pointer(&formats[0])))
		if err := c.do(ioctlModeGetPlane, unsafe.Pointer(&arg)); err != nil {
			return nil, errors.New(err)
		}
	}
	return &kms.Plane{
		ID:            arg.planeID,
		CrtcID:        arg.crtcID,
		FbID:          arg.fbID,
		PossibleCrtcs: arg.possibleCrtcs,
		Formats:       formats,
	}, nil
}

func (c *Card) ObjectProperties(objectID, objectType uint32) (map[string]uint64, error) {
	arg := sysObjGetProperties{objID: objectID, objType: objectType}
	if err := c.do(ioctlModeObjGetProperties, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.New(err)
	}
	props := make(map[string]uint64, arg.countProps)
	if arg.countProps == 0 {
		return props, nil
	}
	ids := make([]uint32, arg.countProps)
	values := make([]uint64, arg.countProps)
	arg.propsPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	arg.propValuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	if err := c.do(ioctlModeObjGetProperties, unsafe.Pointer(&arg)); err != nil {
		return nil, errors.New(err)
	}
	n := min(int(arg.countProps), len(ids))
	for i := 0; i < n; i++ {
		prop := sysGetProperty{propID: ids[i]}
		if err := c.do(ioctlModeGetProperty, unsafe.Pointer(&prop)); err != nil {
			continue
		}
		props[cString(prop.name[:])] = values[i]
	}
	return props, nil
}

func (c *Card) SetCrtc(crtcID, fbID, connectorID uint32, m *kms.Mode) error {
	if c == nil || c.file == nil {
		return errors.NilReceiver()
	}
	if m == nil {
		return errors.NilParam()
	}
	info := infoFromMode(*m)
	conn := connectorID
	return errors.NewErr(retry(func() error {
		return mode.SetCrtc(c.file, crtcID, fbID, 0, 0, &conn, 1, &info)
	}))
}

func (c *Card) SetPlane(u kms.PlaneUpdate) error {
	arg := sysSetPlane{
		planeID: u.PlaneID,
		crtcID:  u.CrtcID,
		fbID:    u.FbID,
		crtcX:   u.CrtcX,
		crtcY:   u.CrtcY,
		crtcW:   u.CrtcW,
		crtcH:   u.CrtcH,
		srcX:    u.SrcX,
		srcY:    u.SrcY,
		srcW:    u.SrcW,
		srcH:    u.SrcH,
	}
	return errors.NewErr(c.do(ioctlModeSetPlane, unsafe.Pointer(&arg)))
}

func (c *Card) CreateDumb(width, height, bpp uint32) (kms.DumbBuffer, error) {
	if c == nil || c.file == nil {
		return kms.DumbBuffer{}, errors.NilReceiver()
	}
	if width > 0xffff || height > 0xffff {
		return kms.DumbBuffer{}, errors.Errorf(`dumb buffer %dx%d too large`, width, height)
	}
	var fb *mode.FB
	err := retry(func() (err error) {
		fb, err = mode.CreateFB(c.file, uint16(width), uint16(height), bpp)
		return err
	})
	if err != nil {
		return kms.DumbBuffer{}, errors.New(err)
	}
	return kms.DumbBuffer{Handle: fb.Handle, Pitch: fb.Pitch, Size: fb.Size}, nil
}

func (c *Card) MapDumb(handle uint32, size uint64) ([]byte, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	var offset uint64
	err := retry(func() (err error) {
		offset, err = mode.MapDumb(c.file, handle)
		return err
	})
	if err != nil {
		return nil, errors.New(err)
	}
	b, err := unix.Mmap(int(c.fd), int64(offset), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.New(err)
	}
	return b, nil
}

func (c *Card) Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return errors.NewErr(unix.Munmap(b))
}

func (c *Card) DestroyDumb(handle uint32) error {
	if c == nil || c.file == nil {
		return errors.NilReceiver()
	}
	return errors.NewErr(retry(func() error { return mode.DestroyDumb(c.file, handle) }))
}

func (c *Card) AddFB2(fb kms.FrameBuffer) (uint32, error) {
	arg := sysFBCmd2{
		width:       fb.Width,
		height:      fb.Height,
		pixelFormat: fb.Format.FourCC(),
		pitches:     fb.Layout.Pitches,
		offsets:     fb.Layout.Offsets,
	}
	for i := 0; i < fb.Layout.Planes && i < len(arg.handles); i++ {
		arg.handles[i] = fb.Handle
	}
	if err := c.do(ioctlModeAddFB2, unsafe.Pointer(&arg)); err != nil {
		return 0, errors.New(err)
	}
	return arg.fbID, nil
}

func (c *Card) RmFB(fbID uint32) error {
	if c == nil || c.file == nil {
		return errors.NilReceiver()
	}
	return errors.NewErr(retry(func() error { return mode.RmFB(c.file, fbID) }))
}

func (c *Card) PrimeHandleToFD(handle uint32) (int, error) {
	arg := sysPrimeHandle{handle: handle, flags: drmCloexec, fd: -1}
	if err := c.do(ioctlPrimeHandleToFD, unsafe.Pointer(&arg)); err != nil {
		return -1, errors.New(err)
	}
	return int(arg.fd), nil
}

func (c *Card) CloseFD(fd int) error {
	if fd < 0 {
		return nil
	}
	return errors.NewErr(unix.Close(fd))
}

func (c *Card) WaitVBlank(req kms.VBlankRequest) error {
	arg := sysWaitVBlank{typ: req.Type, sequence: req.Sequence, signal: req.Signal}
	return errors.NewErr(c.do(ioctlWaitVBlank, unsafe.Pointer(&arg)))
}

func (c *Card) ReadEvents(timeout time.Duration) ([]kms.Event, error) {
	if c == nil || c.file == nil {
		return nil, errors.NilReceiver()
	}
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if err != nil {
			if (errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)) && time.Now().Before(deadline) {
				continue
			}
			return nil, errors.New(err)
		}
		if n == 0 {
			return nil, nil
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return nil, errors.Errorf(`poll revents 0x%x`, fds[0].Revents)
		}
		break
	}

	buf := make([]byte, 1024)
	n, err := unix.Read(int(c.fd), buf)
	if err != nil {
		return nil, errors.New(err)
	}
	return parseEvents(buf[:n]), nil
}

func parseEvents(buf []byte) []kms.Event {
	var events []kms.Event
	for len(buf) >= eventHeaderSize {
		typ := binary.NativeEndian.Uint32(buf[0:])
		length := int(binary.NativeEndian.Uint32(buf[4:]))
		if length < eventHeaderSize || length > len(buf) {
			break
		}
		if (typ == kms.EventVBlank || typ == kms.EventFlipComplete) && length >= eventVBlankSize {
			sec := binary.NativeEndian.Uint32(buf[16:])
			usec := binary.NativeEndian.Uint32(buf[20:])
			events = append(events, kms.Event{
				Type:     typ,
				UserData: binary.NativeEndian.Uint64(buf[8:]),
				Sequence: binary.NativeEndian.Uint32(buf[24:]),
				Time:     time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)),
			})
		}
		buf = buf[length:]
	}
	return events
}

func modeFromInfo(i mode.Info) kms.Mode {
	return kms.Mode{
		Clock:      i.Clock,
		Hdisplay:   i.Hdisplay,
		HsyncStart: i.HsyncStart,
		HsyncEnd:   i.HsyncEnd,
		Htotal:     i.Htotal,
		Hskew:      i.Hskew,
		Vdisplay:   i.Vdisplay,
		VsyncStart: i.VsyncStart,
		VsyncEnd:   i.VsyncEnd,
		Vtotal:     i.Vtotal,
		Vscan:      i.Vscan,
		Vrefresh:   i.Vrefresh,
		Flags:      i.Flags,
		Type:       i.Type,
		Name:       cString(i.Name[:]),
	}
}

func infoFromMode(m kms.Mode) mode.Info {
	i := mode.Info{
		Clock:      m.Clock,
		Hdisplay:   m.Hdisplay,
		HsyncStart: m.HsyncStart,
		HsyncEnd:   m.HsyncEnd,
		Htotal:     m.Htotal,
		Hskew:      m.Hskew,
		Vdisplay:   m.Vdisplay,
		VsyncStart: m.VsyncStart,
		VsyncEnd:   m.VsyncEnd,
		Vtotal:     m.Vtotal,
		Vscan:      m.Vscan,
		Vrefresh:   m.Vrefresh,
		Flags:      m.Flags,
		Type:       m.Type,
	}
	copy(i.Name[:len(i.Name)-1], m.Name)
	return i
}
