package gift

import (
	"image"

	"github.com/disintegration/gift"

	"github.com/liyigang86/drm-rga-demo/blit"
)

// Resizer uses "github.com/disintegration/gift"
type Resizer struct{}

var _ blit.Resizer = (*Resizer)(nil)

func (r *Resizer) Resize(img image.Image, size image.Point) (image.Image, error) {
	m := image.NewRGBA(image.Rectangle{Max: size})
	gift.New(gift.Resize(size.X, size.Y, gift.LinearResampling)).Draw(m, img)
	return m, nil
}
