package display

import (
	"fmt"

	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/kms"
)

// MaxBuffers is the largest pool size.
const MaxBuffers = 3

var ErrBufferCount = errors.New(fmt.Sprintf(`buffer count must be between 1 and %d`, MaxBuffers))

// Pool is a ring of equally sized buffers. The buffer at Index is the one
// the next frame is written to.
type Pool struct {
	dev     kms.Device
	buffers []*BufferObject
	depth   int
	current int
}

func checkBufferCount(count int) error {
	if count < 1 || count > MaxBuffers {
		return errors.WrapPrefix(ErrBufferCount, fmt.Sprintf(`count %d`, count), 0)
	}
	return nil
}

// NewPool allocates count buffers. If any allocation fails the already
// allocated ones are destroyed before returning.
func NewPool(dev kms.Device, count, depth int, width, height uint32) (*Pool, error) {
	if dev == nil {
		return nil, errors.NilParam(dev)
	}
	if err := checkBufferCount(count); err != nil {
		return nil, err
	}
	p := &Pool{dev: dev, depth: depth}
	for i := 0; i < count; i++ {
		bo, err := NewBufferObject(dev, width, height, depth)
		if err != nil {
			_ = p.Release()
			return nil, errors.WrapPrefix(err, fmt.Sprintf(`buffer %d/%d`, i+1, count), 0)
		}
		p.buffers = append(p.buffers, bo)
	}
	return p, nil
}

func (p *Pool) Current() *BufferObject {
	if p == nil || len(p.buffers) == 0 {
		return nil
	}
	return p.buffers[p.current]
}

func (p *Pool) Index() int {
	if p == nil {
		return 0
	}
	return p.current
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.buffers)
}

func (p *Pool) Depth() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Buffers returns the pool's buffers in ring order.
func (p *Pool) Buffers() []*BufferObject {
	if p == nil {
		return nil
	}
	return append([]*BufferObject(nil), p.buffers...)
}

func (p *Pool) Advance() {
	if p == nil || len(p.buffers) == 0 {
		return
	}
	p.current = (p.current + 1) % len(p.buffers)
}

// Release destroys all buffers and empties the pool.
func (p *Pool) Release() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, bo := range p.buffers {
		errs = append(errs, bo.Destroy(p.dev))
	}
	p.buffers = nil
	p.current = 0
	return errors.Join(errs...)
}
