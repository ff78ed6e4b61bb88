package kms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liyigang86/drm-rga-demo/kms"
)

func TestVBlankRequestFor(t *testing.T) {
	base := kms.VBlankRelative | kms.VBlankEvent
	tests := []struct {
		name string
		pipe int
		want uint32
	}{
		{`pipe 0`, 0, base},
		{`pipe 1`, 1, base | kms.VBlankSecondary},
		{`pipe 2`, 2, base | 2<<kms.VBlankHighCrtcShift},
		{`pipe 3`, 3, base | 3<<kms.VBlankHighCrtcShift},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := kms.VBlankRequestFor(tt.pipe, 42)
			assert.Equal(t, tt.want, req.Type)
			assert.Equal(t, uint32(1), req.Sequence)
			assert.Equal(t, uint64(42), req.Signal)
		})
	}
	req := kms.VBlankRequestFor(0, 0)
	assert.Zero(t, req.Type&kms.VBlankSecondary)
	assert.Zero(t, req.Type&kms.VBlankHighCrtcMask)
	req = kms.VBlankRequestFor(3, 0)
	assert.Zero(t, req.Type&kms.VBlankSecondary)
	assert.Equal(t, uint32(3), (req.Type&kms.VBlankHighCrtcMask)>>kms.VBlankHighCrtcShift)
}

func TestCrtcIndex(t *testing.T) {
	res := &kms.Resources{Crtcs: []uint32{31, 45, 62}}
	idx, ok := res.CrtcIndex(45)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = res.CrtcIndex(0)
	assert.False(t, ok)
	_, ok = res.CrtcIndex(99)
	assert.False(t, ok)
	var nilRes *kms.Resources
	_, ok = nilRes.CrtcIndex(31)
	assert.False(t, ok)
}
