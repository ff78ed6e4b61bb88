// Package kms describes the subset of the kernel mode-setting API the
// display engine drives. The Linux implementation lives in kms/card.
package kms

import (
	"time"

	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
)

var ErrNotFound = errors.New(`kms object not found`)

type ConnectionStatus uint32

const (
	Connected         ConnectionStatus = 1
	Disconnected      ConnectionStatus = 2
	UnknownConnection ConnectionStatus = 3
)

func (s ConnectionStatus) String() string {
	switch s {
	case Connected:
		return `connected`
	case Disconnected:
		return `disconnected`
	}
	return `unknown`
}

// PlaneType is the value of a plane's "type" property.
type PlaneType uint64

const (
	PlaneOverlay PlaneType = 0
	PlanePrimary PlaneType = 1
	PlaneCursor  PlaneType = 2
)

func (p PlaneType) String() string {
	switch p {
	case PlaneOverlay:
		return `overlay`
	case PlanePrimary:
		return `primary`
	case PlaneCursor:
		return `cursor`
	}
	return `unknown`
}

const (
	ObjectPlane uint32 = 0xeeeeeeee

	PropertyType = `type`

	ClientCapUniversalPlanes uint64 = 2
	ClientCapAtomic          uint64 = 3
)

// vblank request type bits
const (
	VBlankRelative       uint32 = 0x00000001
	VBlankEvent          uint32 = 0x04000000
	VBlankSecondary      uint32 = 0x20000000
	VBlankHighCrtcShift         = 1
	VBlankHighCrtcMask   uint32 = 0x0000003e
	EventVBlank          uint32 = 0x01
	EventFlipComplete    uint32 = 0x02
)

// Mode is a display timing, only the parts the engine looks at are
// interpreted, the rest is passed back to the kernel untouched.
type Mode struct {
	Clock                                         uint32
	Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew uint16
	Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan uint16
	Vrefresh                                      uint32
	Flags                                         uint32
	Type                                          uint32
	Name                                          string
}

type Resources struct {
	Crtcs      []uint32
	Connectors []uint32
	Encoders   []uint32
}

// CrtcIndex returns the pipe index of a CRTC id.
func (r *Resources) CrtcIndex(crtcID uint32) (int, bool) {
	if r == nil || crtcID == 0 {
		return 0, false
	}
	for i, id := range r.Crtcs {
		if id == crtcID {
			return i, true
		}
	}
	return 0, false
}

type Connector struct {
	ID        uint32
	EncoderID uint32
	Status    ConnectionStatus
	Modes     []Mode
	Encoders  []uint32
}

type Encoder struct {
	ID            uint32
	CrtcID        uint32
	PossibleCrtcs uint32
}

type Crtc struct {
	ID            uint32
	BufferID      uint32
	Width, Height uint32
	ModeValid     bool
	Mode          Mode
}

type Plane struct {
	ID            uint32
	CrtcID        uint32
	FbID          uint32
	PossibleCrtcs uint32
	Formats       []uint32
}

// DumbBuffer is what the kernel returns for a dumb buffer allocation.
type DumbBuffer struct {
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// FrameBuffer is a framebuffer registration request, every plane refers
// to the same buffer handle.
type FrameBuffer struct {
	Width, Height uint32
	Format        format.Format
	Handle        uint32
	Layout        format.Layout
}

// PlaneUpdate sets a plane. Source coordinates are 16.16 fixed point.
type PlaneUpdate struct {
	PlaneID, CrtcID, FbID  uint32
	CrtcX, CrtcY           int32
	CrtcW, CrtcH           uint32
	SrcX, SrcY, SrcW, SrcH uint32
}

type VBlankRequest struct {
	Type     uint32
	Sequence uint32
	Signal   uint64
}

// VBlankRequestFor builds a relative, event-generating request for the
// blank following the current one on the given pipe.
func VBlankRequestFor(pipe int, signal uint64) VBlankRequest {
	req := VBlankRequest{
		Type:     VBlankRelative | VBlankEvent,
		Sequence: 1,
		Signal:   signal,
	}
	switch {
	case pipe == 1:
		req.Type |= VBlankSecondary
	case pipe > 1:
		req.Type |= (uint32(pipe) << VBlankHighCrtcShift) & VBlankHighCrtcMask
	}
	return req
}

// Event is a DRM event read from the device.
type Event struct {
	Type     uint32
	UserData uint64
	Sequence uint32
	Time     time.Time
}

// Device is an open mode-setting device. Implementations are not safe for
// concurrent use.
type Device interface {
	SetClientCap(capability, value uint64) error
	Resources() (*Resources, error)
	Connector(id uint32) (*Connector, error)
	Encoder(id uint32) (*Encoder, error)
	Crtc(id uint32) (*Crtc, error)
	PlaneIDs() ([]uint32, error)
	Plane(id uint32) (*Plane, error)
	// ObjectProperties returns the named property values of an object.
	ObjectProperties(objectID, objectType uint32) (map[string]uint64, error)
	SetCrtc(crtcID, fbID, connectorID uint32, mode *Mode) error
	SetPlane(u PlaneUpdate) error

	CreateDumb(width, height, bpp uint32) (DumbBuffer, error)
	MapDumb(handle uint32, size uint64) ([]byte, error)
	Unmap(b []byte) error
	DestroyDumb(handle uint32) error
	AddFB2(fb FrameBuffer) (uint32, error)
	RmFB(fbID uint32) error
	// PrimeHandleToFD exports a buffer handle as a dma-buf descriptor.
	PrimeHandleToFD(handle uint32) (int, error)
	CloseFD(fd int) error

	WaitVBlank(req VBlankRequest) error
	// ReadEvents waits up to timeout for pending events. It returns no
	// events and no error when the timeout expired.
	ReadEvents(timeout time.Duration) ([]Event, error)

	Close() error
}
