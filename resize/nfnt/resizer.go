package nfnt

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/liyigang86/drm-rga-demo/blit"
)

// Resizer uses "github.com/nfnt/resize"
type Resizer struct{}

var _ blit.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	return resize.Resize(uint(size.X), uint(size.Y), img, resize.Bilinear), nil
}
