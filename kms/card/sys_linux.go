//go:build linux

package card

import (
	"unsafe"

	"github.com/NeowayLabs/drm"
	"github.com/NeowayLabs/drm/ioctl"
)

// kernel structures not covered by github.com/NeowayLabs/drm/mode

type (
	sysSetClientCap struct {
		capability uint64
		value      uint64
	}

	sysGetPlaneResources struct {
		planeIDPtr  uint64
		countPlanes uint32
	}

	sysGetPlane struct {
		planeID          uint32
		crtcID           uint32
		fbID             uint32
		possibleCrtcs    uint32
		gammaSize        uint32
		countFormatTypes uint32
		formatTypePtr    uint64
	}

	sysSetPlane struct {
		planeID uint32
		crtcID  uint32
		fbID    uint32
		flags   uint32
		crtcX   int32
		crtcY   int32
		crtcW   uint32
		crtcH   uint32
		srcX    uint32
		srcY    uint32
		srcH    uint32
		srcW    uint32
	}

	sysObjGetProperties struct {
		propsPtr      uint64
		propValuesPtr uint64
		countProps    uint32
		objID         uint32
		objType       uint32
	}

	sysGetProperty struct {
		valuesPtr      uint64
		enumBlobPtr    uint64
		propID         uint32
		flags          uint32
		name           [32]uint8
		countValues    uint32
		countEnumBlobs uint32
	}

	sysFBCmd2 struct {
		fbID        uint32
		width       uint32
		height      uint32
		pixelFormat uint32
		flags       uint32
		handles     [4]uint32
		pitches     [4]uint32
		offsets     [4]uint32
		modifier    [4]uint64
	}

	sysPrimeHandle struct {
		handle uint32
		flags  uint32
		fd     int32
	}

	// union drm_wait_vblank, the reply's tval_sec overlays signal
	sysWaitVBlank struct {
		typ      uint32
		sequence uint32
		signal   uint64
		tvalUsec int64
	}
)

const (
	drmCloexec = 0o2000000

	// sizes of struct drm_event and struct drm_event_vblank
	eventHeaderSize = 8
	eventVBlankSize = 32
)

var (
	// DRM_IOW(0x0D, struct drm_set_client_cap)
	ioctlSetClientCap = ioctl.NewCode(ioctl.Write,
		uint16(unsafe.Sizeof(sysSetClientCap{})), drm.IOCTLBase, 0x0D)

	// DRM_IOWR(0x2D, struct drm_prime_handle)
	ioctlPrimeHandleToFD = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysPrimeHandle{})), drm.IOCTLBase, 0x2D)

	// DRM_IOWR(0x3A, union drm_wait_vblank)
	ioctlWaitVBlank = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysWaitVBlank{})), drm.IOCTLBase, 0x3A)

	// DRM_IOWR(0xAA, struct drm_mode_get_property)
	ioctlModeGetProperty = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetProperty{})), drm.IOCTLBase, 0xAA)

	// DRM_IOWR(0xB5, struct drm_mode_get_plane_res)
	ioctlModeGetPlaneResources = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetPlaneResources{})), drm.IOCTLBase, 0xB5)

	// DRM_IOWR(0xB6, struct drm_mode_get_plane)
	ioctlModeGetPlane = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysGetPlane{})), drm.IOCTLBase, 0xB6)

	// DRM_IOWR(0xB7, struct drm_mode_set_plane)
	ioctlModeSetPlane = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysSetPlane{})), drm.IOCTLBase, 0xB7)

	// DRM_IOWR(0xB8, struct drm_mode_fb_cmd2)
	ioctlModeAddFB2 = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysFBCmd2{})), drm.IOCTLBase, 0xB8)

	// DRM_IOWR(0xB9, struct drm_mode_obj_get_properties)
	ioctlModeObjGetProperties = ioctl.NewCode(ioctl.Read|ioctl.Write,
		uint16(unsafe.Sizeof(sysObjGetProperties{})), drm.IOCTLBase, 0xB9)
)

func cString(b []uint8) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
