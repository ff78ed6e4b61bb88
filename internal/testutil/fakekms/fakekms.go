// Package fakekms is an in-memory kms.Device with failure injection and
// call recording.
package fakekms

import (
	"fmt"
	"time"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

var ErrInjected = errors.New(`injected failure`)

var _ kms.Device = (*Device)(nil)

type Device struct {
	Res        kms.Resources
	Connectors map[uint32]*kms.Connector
	Encoders   map[uint32]*kms.Encoder
	Crtcs      map[uint32]*kms.Crtc
	PlaneList  []kms.Plane
	PlaneTypes map[uint32]kms.PlaneType

	// PitchAlign rounds pitches up, 0 and 1 mean unaligned.
	PitchAlign uint32

	// CreateDumbLimit fails every dumb buffer creation after that many
	// successful ones, negative means unlimited.
	CreateDumbLimit int
	FailResources   bool
	FailMap         bool
	FailAddFB       bool
	FailPrime       bool
	FailSetCrtc     bool
	FailSetPlane    bool
	FailWaitVBlank  bool
	FailReadEvents  bool
	// NoVBlankEvents keeps ReadEvents silent so waits run into the timeout.
	NoVBlankEvents bool
	// StrayEvents are delivered before the requested event.
	StrayEvents []kms.Event

	Calls          []string
	ClientCaps     map[uint64]uint64
	CrtcSets       []CrtcSet
	PlaneUpdates   []kms.PlaneUpdate
	VBlankRequests []kms.VBlankRequest
	FrameBuffers   map[uint32]kms.FrameBuffer
	Closed         bool

	nextHandle uint32
	nextFB     uint32
	nextFD     int
	created    int
	handles    map[uint32]bool
	fds        map[int]bool
	mappings   int
	pending    []kms.Event
}

type CrtcSet struct {
	CrtcID, FbID, ConnectorID uint32
	Mode                      kms.Mode
}

func Mode(w, h uint16) kms.Mode {
	return kms.Mode{Hdisplay: w, Vdisplay: h, Vrefresh: 60, Name: fmt.Sprintf(`%dx%d`, w, h)}
}

// New returns a device without any display objects.
func New() *Device {
	return &Device{
		Connectors:      make(map[uint32]*kms.Connector),
		Encoders:        make(map[uint32]*kms.Encoder),
		Crtcs:           make(map[uint32]*kms.Crtc),
		PlaneTypes:      make(map[uint32]kms.PlaneType),
		ClientCaps:      make(map[uint64]uint64),
		FrameBuffers:    make(map[uint32]kms.FrameBuffer),
		CreateDumbLimit: -1,
		nextHandle:      1,
		nextFB:          100,
		nextFD:          10,
		handles:         make(map[uint32]bool),
		fds:             make(map[int]bool),
	}
}

// NewStandard returns a device with one connected HDMI-like connector
// offering 1280x720 and 1920x1080, its encoder bound to CRTC 31 (pipe 0),
// a second CRTC 45 (pipe 1) and three planes:
// 40 primary on pipe 0, 41 overlay on pipes 0 and 1, 50 primary on pipe 1.
func NewStandard() *Device {
	d := New()
	d.AddCrtc(kms.Crtc{ID: 31})
	d.AddCrtc(kms.Crtc{ID: 45})
	d.AddEncoder(kms.Encoder{ID: 20, CrtcID: 31, PossibleCrtcs: 0b11})
	d.AddConnector(kms.Connector{
		ID:        10,
		EncoderID: 20,
		Status:    kms.Connected,
		Modes:     []kms.Mode{Mode(1280, 720), Mode(1920, 1080)},
		Encoders:  []uint32{20},
	})
	d.AddPlane(kms.Plane{ID: 40, PossibleCrtcs: 0b01}, kms.PlanePrimary)
	d.AddPlane(kms.Plane{ID: 41, PossibleCrtcs: 0b11}, kms.PlaneOverlay)
	d.AddPlane(kms.Plane{ID: 50, PossibleCrtcs: 0b10}, kms.PlanePrimary)
	return d
}

func (d *Device) AddCrtc(c kms.Crtc) {
	d.Res.Crtcs = append(d.Res.Crtcs, c.ID)
	d.Crtcs[c.ID] = &c
}

func (d *Device) AddEncoder(e kms.Encoder) {
	d.Res.Encoders = append(d.Res.Encoders, e.ID)
	d.Encoders[e.ID] = &e
}

func (d *Device) AddConnector(c kms.Connector) {
	d.Res.Connectors = append(d.Res.Connectors, c.ID)
	d.Connectors[c.ID] = &c
}

func (d *Device) AddPlane(p kms.Plane, typ kms.PlaneType) {
	d.PlaneList = append(d.PlaneList, p)
	d.PlaneTypes[p.ID] = typ
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *Device) LiveHandles() int  { return len(d.handles) }
func (d *Device) LiveFBs() int      { return len(d.FrameBuffers) }
func (d *Device) LiveFDs() int      { return len(d.fds) }
func (d *Device) LiveMappings() int { return d.mappings }

// Leaks sums up all kernel objects that are still alive.
func (d *Device) Leaks() int {
	return d.LiveHandles() + d.LiveFBs() + d.LiveFDs() + d.LiveMappings()
}

func (d *Device) SetClientCap(capability, value uint64) error {
	d.ClientCaps[capability] = value
	return nil
}

func (d *Device) Resources() (*kms.Resources, error) {
	if d.FailResources {
		return nil, ErrInjected
	}
	res := kms.Resources{
		Crtcs:      append([]uint32(nil), d.Res.Crtcs...),
		Connectors: append([]uint32(nil), d.Res.Connectors...),
		Encoders:   append([]uint32(nil), d.Res.Encoders...),
	}
	return &res, nil
}

func (d *Device) Connector(id uint32) (*kms.Connector, error) {
	c, ok := d.Connectors[id]
	if !ok {
		return nil, kms.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (d *Device) Encoder(id uint32) (*kms.Encoder, error) {
	e, ok := d.Encoders[id]
	if !ok {
		return nil, kms.ErrNotFound
	}
	ee := *e
	return &ee, nil
}

func (d *Device) Crtc(id uint32) (*kms.Crtc, error) {
	c, ok := d.Crtcs[id]
	if !ok {
		return nil, kms.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (d *Device) PlaneIDs() ([]uint32, error) {
	ids := make([]uint32, 0, len(d.PlaneList))
	for _, p := range d.PlaneList {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (d *Device) Plane(id uint32) (*kms.Plane, error) {
	for _, p := range d.PlaneList {
		if p.ID == id {
			pp := p
			return &pp, nil
		}
	}
	return nil, kms.ErrNotFound
}

func (d *Device) ObjectProperties(objectID, objectType uint32) (map[string]uint64, error) {
	if objectType != kms.ObjectPlane {
		return map[string]uint64{}, nil
	}
	typ, ok := d.PlaneTypes[objectID]
	if !ok {
		return nil, kms.ErrNotFound
	}
	return map[string]uint64{kms.PropertyType: uint64(typ), `zpos`: 0}, nil
}

func (d *Device) SetCrtc(crtcID, fbID, connectorID uint32, m *kms.Mode) error {
	d.record(`set_crtc:%d:%d`, crtcID, fbID)
	if d.FailSetCrtc {
		return ErrInjected
	}
	d.CrtcSets = append(d.CrtcSets, CrtcSet{CrtcID: crtcID, FbID: fbID, ConnectorID: connectorID, Mode: *m})
	return nil
}

func (d *Device) SetPlane(u kms.PlaneUpdate) error {
	d.record(`set_plane:%d:%d`, u.PlaneID, u.FbID)
	if d.FailSetPlane {
		return ErrInjected
	}
	d.PlaneUpdates = append(d.PlaneUpdates, u)
	return nil
}

func (d *Device) CreateDumb(width, height, bpp uint32) (kms.DumbBuffer, error) {
	if d.CreateDumbLimit >= 0 && d.created >= d.CreateDumbLimit {
		d.record(`create_dumb:fail`)
		return kms.DumbBuffer{}, ErrInjected
	}
	d.created++
	pitch := (width*bpp + 7) / 8
	if a := d.PitchAlign; a > 1 {
		pitch = (pitch + a - 1) / a * a
	}
	h := d.nextHandle
	d.nextHandle++
	d.handles[h] = true
	d.record(`create_dumb:%d`, h)
	return kms.DumbBuffer{Handle: h, Pitch: pitch, Size: uint64(pitch) * uint64(height)}, nil
}

func (d *Device) MapDumb(handle uint32, size uint64) ([]byte, error) {
	if d.FailMap {
		return nil, ErrInjected
	}
	d.mappings++
	d.record(`map:%d`, handle)
	return make([]byte, size), nil
}

func (d *Device) Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	d.mappings--
	d.record(`unmap`)
	return nil
}

func (d *Device) DestroyDumb(handle uint32) error {
	if !d.handles[handle] {
		return kms.ErrNotFound
	}
	delete(d.handles, handle)
	d.record(`destroy_dumb:%d`, handle)
	return nil
}

func (d *Device) AddFB2(fb kms.FrameBuffer) (uint32, error) {
	if d.FailAddFB {
		return 0, ErrInjected
	}
	id := d.nextFB
	d.nextFB++
	d.FrameBuffers[id] = fb
	d.record(`add_fb:%d`, id)
	return id, nil
}

func (d *Device) RmFB(fbID uint32) error {
	if _, ok := d.FrameBuffers[fbID]; !ok {
		return kms.ErrNotFound
	}
	delete(d.FrameBuffers, fbID)
	d.record(`rm_fb:%d`, fbID)
	return nil
}

func (d *Device) PrimeHandleToFD(handle uint32) (int, error) {
	if d.FailPrime {
		return -1, ErrInjected
	}
	fd := d.nextFD
	d.nextFD++
	d.fds[fd] = true
	d.record(`prime:%d`, fd)
	return fd, nil
}

func (d *Device) CloseFD(fd int) error {
	if !d.fds[fd] {
		return kms.ErrNotFound
	}
	delete(d.fds, fd)
	d.record(`close_fd:%d`, fd)
	return nil
}

func (d *Device) WaitVBlank(req kms.VBlankRequest) error {
	if d.FailWaitVBlank {
		return ErrInjected
	}
	d.VBlankRequests = append(d.VBlankRequests, req)
	if !d.NoVBlankEvents {
		d.pending = append(d.pending, d.StrayEvents...)
		d.pending = append(d.pending, kms.Event{
			Type:     kms.EventVBlank,
			UserData: req.Signal,
			Sequence: uint32(len(d.VBlankRequests)),
			Time:     time.Now(),
		})
	}
	return nil
}

// ReadEvents hands out one pending event per call.
func (d *Device) ReadEvents(timeout time.Duration) ([]kms.Event, error) {
	if d.FailReadEvents {
		return nil, ErrInjected
	}
	if len(d.pending) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return []kms.Event{ev}, nil
}

func (d *Device) Close() error {
	d.Closed = true
	d.record(`close`)
	return nil
}
