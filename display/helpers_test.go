package display_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/display"
	"github.com/liyigang86/drm-rga-demo/internal/testutil/fakekms"
)

type fakeBlitter struct {
	initErr error
	blitErr error
	inits   int
	blits   int
	closes  int
}

var _ blit.Blitter = (*fakeBlitter)(nil)

func (b *fakeBlitter) Name() string { return `fake` }

func (b *fakeBlitter) Init() error {
	b.inits++
	return b.initErr
}

func (b *fakeBlitter) Blit(src, dst blit.Surface) error {
	b.blits++
	if b.blitErr != nil {
		return b.blitErr
	}
	for i := range dst.Data[:dst.Size()] {
		dst.Data[i] = 0x5a
	}
	return nil
}

func (b *fakeBlitter) Close() error {
	b.closes++
	return nil
}

func newContext(t *testing.T, dev *fakekms.Device, count, depth int, opts ...display.Option) *display.Context {
	t.Helper()
	c, err := display.New(count, depth, 0, 0, append([]display.Option{display.SetDevice(dev)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// indexOf returns the position of call in calls or -1.
func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func itoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
