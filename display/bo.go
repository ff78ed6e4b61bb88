package display

import (
	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/format"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

// BufferObject is a mapped dumb buffer registered for scan-out and exported
// as a dma-buf.
type BufferObject struct {
	// Data is the CPU mapping, nil once unmapped.
	Data   []byte
	Size   uint64
	Pitch  uint32
	Handle uint32
	FbID   uint32
	// DmaFD is -1 while not exported.
	DmaFD         int
	Width, Height uint32
	Depth         int
	Format        format.Format
}

// NewBufferObject allocates, maps, registers and exports a buffer.
// Whatever was acquired before a failing step is released again.
func NewBufferObject(dev kms.Device, width, height uint32, depth int) (_ *BufferObject, err error) {
	if dev == nil {
		return nil, errors.NilParam(dev)
	}
	f, err := format.ForDepth(depth)
	if err != nil {
		return nil, err
	}
	bo := &BufferObject{DmaFD: -1, Width: width, Height: height, Depth: depth, Format: f}
	defer func() {
		if err != nil {
			_ = bo.Destroy(dev)
		}
	}()

	db, err := dev.CreateDumb(width, height, uint32(depth))
	if err != nil {
		return nil, errors.WrapPrefix(err, `create dumb buffer`, 0)
	}
	bo.Handle, bo.Pitch, bo.Size = db.Handle, db.Pitch, db.Size

	if bo.Data, err = dev.MapDumb(bo.Handle, bo.Size); err != nil {
		bo.Data = nil
		return nil, errors.WrapPrefix(err, `map dumb buffer`, 0)
	}

	layout, err := f.Layout(bo.Pitch, height)
	if err != nil {
		return nil, err
	}
	fbID, err := dev.AddFB2(kms.FrameBuffer{
		Width:  width,
		Height: height,
		Format: f,
		Handle: bo.Handle,
		Layout: layout,
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, `add framebuffer`, 0)
	}
	bo.FbID = fbID

	fd, err := dev.PrimeHandleToFD(bo.Handle)
	if err != nil {
		return nil, errors.WrapPrefix(err, `export dma-buf`, 0)
	}
	bo.DmaFD = fd
	return bo, nil
}

// Destroy releases the buffer in the order dma-buf, framebuffer, mapping,
// handle. Steps that were never acquired are skipped and a failing step
// doesn't prevent the remaining ones, the collected errors are returned
// for logging only.
func (bo *BufferObject) Destroy(dev kms.Device) error {
	if bo == nil || dev == nil {
		return nil
	}
	var errs []error
	if bo.DmaFD >= 0 {
		errs = append(errs, dev.CloseFD(bo.DmaFD))
		bo.DmaFD = -1
	}
	if bo.FbID != 0 {
		errs = append(errs, dev.RmFB(bo.FbID))
		bo.FbID = 0
	}
	if bo.Data != nil {
		errs = append(errs, dev.Unmap(bo.Data))
		bo.Data = nil
	}
	if bo.Handle != 0 {
		errs = append(errs, dev.DestroyDumb(bo.Handle))
		bo.Handle = 0
	}
	return errors.Join(errs...)
}

// Surface describes the mapped buffer to a blit engine.
func (bo *BufferObject) Surface() blit.Surface {
	return blit.Surface{
		Data:   bo.Data,
		Depth:  bo.Depth,
		Width:  int(bo.Width),
		Height: int(bo.Height),
		Pitch:  int(bo.Pitch),
	}
}
