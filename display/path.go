package display

import (
	"fmt"
	"image"
	"log/slog"
	"math/bits"
	"slices"

	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/internal/logx"
	"github.com/liyigang86/drm-rga-demo/kms"
)

var ErrPathNotFound = errors.New(`no usable display path`)

// Path is the connector, mode, CRTC and plane frames are shown on.
// It is resolved once and not re-validated afterwards.
type Path struct {
	// ConnectorID is 0 for overlay paths, which don't own a connector.
	ConnectorID uint32
	Mode        kms.Mode
	CrtcID      uint32
	// Pipe is the index of the CRTC in the resource list.
	Pipe    int
	PlaneID uint32
	// ModeSize is the size of the displayed area.
	ModeSize image.Point
}

func (p *Path) String() string {
	if p == nil {
		return `<nil>`
	}
	return fmt.Sprintf(`connector %d, mode %dx%d, crtc %d (pipe %d), plane %d`,
		p.ConnectorID, p.ModeSize.X, p.ModeSize.Y, p.CrtcID, p.Pipe, p.PlaneID)
}

// SelectPath picks a path without modifying the device. The plane must
// be able to scan out pix, format.Unknown accepts any plane.
func SelectPath(dev kms.Device, cfg Config, pix format.Format, logger *slog.Logger) (*Path, error) {
	if dev == nil {
		return nil, errors.NilParam(dev)
	}
	lp := logx.Prov(logger)
	res, err := dev.Resources()
	if err != nil {
		return nil, errors.WrapPrefix(err, `get resources`, 0)
	}

	p := &Path{}
	if cfg.PlaneRole == RoleOverlay {
		crtc, pipe, err := findActiveCrtc(dev, res)
		if err != nil {
			return nil, err
		}
		p.CrtcID, p.Pipe = crtc.ID, pipe
		p.Mode = crtc.Mode
		p.ModeSize = image.Pt(int(crtc.Width), int(crtc.Height))
		logx.Debug(`active crtc`, lp, `crtc`, crtc.ID, `pipe`, pipe, `size`, p.ModeSize)
	} else {
		conn, err := findConnector(dev, res, lp)
		if err != nil {
			return nil, err
		}
		p.ConnectorID = conn.ID
		p.Mode = pickMode(conn.Modes, cfg.PreferredMode)
		p.ModeSize = image.Pt(int(p.Mode.Hdisplay), int(p.Mode.Vdisplay))
		logx.Debug(`selected mode`, lp, `connector`, conn.ID, `mode`, p.Mode.Name, `size`, p.ModeSize)

		p.CrtcID, p.Pipe, err = findCrtc(dev, res, conn, lp)
		if err != nil {
			return nil, err
		}
	}

	p.PlaneID, err = findPlane(dev, p.Pipe, cfg.PlaneRole.planeType(), pix, lp)
	if err != nil {
		return nil, err
	}
	logx.Debug(`selected path`, lp, `path`, p.String())
	return p, nil
}

// findConnector returns the first connected connector with at least one mode.
func findConnector(dev kms.Device, res *kms.Resources, lp logx.LoggerProvider) (*kms.Connector, error) {
	for _, id := range res.Connectors {
		conn, err := dev.Connector(id)
		if err != nil {
			logx.IsErr(err, lp, slog.LevelDebug, `connector`, id)
			continue
		}
		logx.Debug(`check connector`, lp, `connector`, id, `status`, conn.Status, `modes`, len(conn.Modes))
		if conn.Status == kms.Connected && len(conn.Modes) > 0 {
			return conn, nil
		}
	}
	return nil, errors.WrapPrefix(ErrPathNotFound, `no connected connector`, 0)
}

// pickMode returns the mode matching preferred or the first one.
func pickMode(modes []kms.Mode, preferred image.Point) kms.Mode {
	for _, m := range modes {
		if int(m.Hdisplay) == preferred.X && int(m.Vdisplay) == preferred.Y {
			return m
		}
	}
	return modes[0]
}

// findCrtc prefers the CRTC the connector's encoder is bound to, otherwise
// the lowest CRTC any encoder can drive.
func findCrtc(dev kms.Device, res *kms.Resources, conn *kms.Connector, lp logx.LoggerProvider) (uint32, int, error) {
	if conn.EncoderID != 0 {
		if enc, err := dev.Encoder(conn.EncoderID); err == nil {
			if pipe, ok := res.CrtcIndex(enc.CrtcID); ok {
				logx.Debug(`preferred crtc`, lp, `crtc`, enc.CrtcID, `pipe`, pipe)
				return enc.CrtcID, pipe, nil
			}
		}
	}
	var possible uint32
	for _, id := range res.Encoders {
		enc, err := dev.Encoder(id)
		if err != nil {
			continue
		}
		possible |= enc.PossibleCrtcs
	}
	logx.Debug(`possible crtcs`, lp, `mask`, fmt.Sprintf(`%#x`, possible))
	if possible == 0 {
		return 0, 0, errors.WrapPrefix(ErrPathNotFound, `no possible crtc`, 0)
	}
	pipe := bits.TrailingZeros32(possible)
	if pipe >= len(res.Crtcs) {
		return 0, 0, errors.WrapPrefix(ErrPathNotFound, fmt.Sprintf(`crtc index %d out of range`, pipe), 0)
	}
	return res.Crtcs[pipe], pipe, nil
}

// findActiveCrtc returns the first CRTC currently driving a mode.
func findActiveCrtc(dev kms.Device, res *kms.Resources) (*kms.Crtc, int, error) {
	for i, id := range res.Crtcs {
		crtc, err := dev.Crtc(id)
		if err != nil {
			continue
		}
		if crtc.ModeValid {
			return crtc, i, nil
		}
	}
	return nil, 0, errors.WrapPrefix(ErrPathNotFound, `no active crtc`, 0)
}

// findPlane returns the first plane of the given type usable on pipe that
// supports pix.
func findPlane(dev kms.Device, pipe int, typ kms.PlaneType, pix format.Format, lp logx.LoggerProvider) (uint32, error) {
	ids, err := dev.PlaneIDs()
	if err != nil {
		return 0, errors.WrapPrefix(err, `get plane resources`, 0)
	}
	for _, id := range ids {
		plane, err := dev.Plane(id)
		if err != nil {
			continue
		}
		props, err := dev.ObjectProperties(id, kms.ObjectPlane)
		if err != nil {
			continue
		}
		v, ok := props[kms.PropertyType]
		matched := ok && kms.PlaneType(v) == typ && plane.PossibleCrtcs&(1<<uint(pipe)) != 0 &&
			supportsFormat(plane, pix)
		logx.Debug(`check plane`, lp, `plane`, id, `possible_crtcs`, fmt.Sprintf(`%#x`, plane.PossibleCrtcs), `matched`, matched)
		if matched {
			return id, nil
		}
	}
	return 0, errors.WrapPrefix(ErrPathNotFound, fmt.Sprintf(`no %s plane for pipe %d and format %s`, typ, pipe, pix), 0)
}

// supportsFormat reports whether the plane lists pix. Planes that report
// no formats are accepted.
func supportsFormat(plane *kms.Plane, pix format.Format) bool {
	if !pix.Valid() || len(plane.Formats) == 0 {
		return true
	}
	return slices.Contains(plane.Formats, pix.FourCC())
}
