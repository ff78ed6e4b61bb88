package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/liyigang86/drm-rga-demo/blit"
)

// Resizer uses "github.com/disintegration/imaging"
type Resizer struct{}

var _ blit.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	return imaging.Resize(img, size.X, size.Y, imaging.Linear), nil
}
