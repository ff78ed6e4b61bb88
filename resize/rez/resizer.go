package rez

import (
	"image"

	"github.com/bamiaux/rez"

	"github.com/liyigang86/drm-rga-demo/blit"
)

// Resizer uses "github.com/bamiaux/rez". It keeps 4:2:0 YCbCr input in
// YCbCr so NV12 frames don't go through RGB.
type Resizer struct{}

var _ blit.Resizer = (*Resizer)(nil)

func (r Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	var m image.Image
	switch it := img.(type) {
	case *image.YCbCr:
		m = image.NewYCbCr(image.Rectangle{Max: size}, it.SubsampleRatio)
	default:
		m = image.NewRGBA(image.Rectangle{Max: size})
	}
	if err := rez.Convert(m, img, rez.NewBilinearFilter()); err != nil {
		return nil, err
	}
	return m, nil
}
