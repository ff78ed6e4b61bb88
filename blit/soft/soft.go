// Package soft is the CPU blit engine. It decodes the source surface into an
// image, scales it with a [blit.Resizer] when the geometry differs and
// encodes it into the destination format.
package soft

import (
	"encoding/binary"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/liyigang86/drm-rga-demo/blit"
	"github.com/liyigang86/drm-rga-demo/internal/errors"
	"github.com/liyigang86/drm-rga-demo/resize/rdefault"
)

const Name = `soft`

func init() {
	blit.Register(Name, func() blit.Blitter { return New(nil) })
}

type Blitter struct {
	resizer blit.Resizer
}

var _ blit.Blitter = (*Blitter)(nil)

// New returns a software engine scaling with r, nil selects the default resizer.
func New(r blit.Resizer) *Blitter {
	if r == nil {
		r = &rdefault.Resizer{}
	}
	return &Blitter{resizer: r}
}

func (b *Blitter) Name() string { return Name }

func (b *Blitter) Init() error {
	if b == nil || b.resizer == nil {
		return errors.NilReceiver()
	}
	return nil
}

func (b *Blitter) Close() error { return nil }

func (b *Blitter) Blit(src, dst blit.Surface) error {
	if b == nil || b.resizer == nil {
		return errors.NilReceiver()
	}
	img, err := Decode(src)
	if err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	if src.Width != dst.Width || src.Height != dst.Height {
		img, err = b.resizer.Resize(img, image.Pt(dst.Width, dst.Height))
		if err != nil {
			return errors.WrapPrefix(err, `resize`, 0)
		}
	}
	return Encode(dst, img)
}

// Decode wraps or converts the surface pixels into an image.
// NV12 becomes a 4:2:0 [image.YCbCr], everything else an [image.RGBA].
func Decode(s blit.Surface) (image.Image, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Depth {
	case 12:
		return decodeNV12(s), nil
	case 16:
		return decodeRGB565(s), nil
	case 24, 32:
		return decodeXRGB(s), nil
	}
	return nil, errors.New(blit.ErrUnsupportedFormat)
}

func decodeNV12(s blit.Surface) *image.YCbCr {
	stride := s.Stride()
	img := image.NewYCbCr(s.Bounds(), image.YCbCrSubsampleRatio420)
	for y := 0; y < s.Height; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+s.Width], s.Data[y*stride:])
	}
	uv := s.Data[stride*s.Height:]
	rows := min((s.Height+1)/2, len(uv)/stride)
	cols := min((s.Width+1)/2, stride/2)
	for y := 0; y < rows; y++ {
		row := uv[y*stride:]
		for x := 0; x < cols; x++ {
			img.Cb[y*img.CStride+x] = row[2*x]
			img.Cr[y*img.CStride+x] = row[2*x+1]
		}
	}
	return img
}

func decodeRGB565(s blit.Surface) *image.RGBA {
	img := image.NewRGBA(s.Bounds())
	for y := 0; y < s.Height; y++ {
		row := s.Data[y*s.Pitch:]
		pix := img.Pix[y*img.Stride:]
		for x := 0; x < s.Width; x++ {
			v := binary.LittleEndian.Uint16(row[2*x:])
			r, g, b := uint8(v>>11)&0x1f, uint8(v>>5)&0x3f, uint8(v)&0x1f
			pix[4*x] = r<<3 | r>>2
			pix[4*x+1] = g<<2 | g>>4
			pix[4*x+2] = b<<3 | b>>2
			pix[4*x+3] = 0xff
		}
	}
	return img
}

// decodeXRGB reads little endian XRGB, i.e. B, G, R[, X] in memory.
func decodeXRGB(s blit.Surface) *image.RGBA {
	bpp := s.Depth / 8
	img := image.NewRGBA(s.Bounds())
	for y := 0; y < s.Height; y++ {
		row := s.Data[y*s.Pitch:]
		pix := img.Pix[y*img.Stride:]
		for x := 0; x < s.Width; x++ {
			p := row[bpp*x:]
			pix[4*x] = p[2]
			pix[4*x+1] = p[1]
			pix[4*x+2] = p[0]
			pix[4*x+3] = 0xff
		}
	}
	return img
}

// Encode writes img into the surface. Pixels outside of img stay untouched
// as zero, bytes past the surface width in each row are never written.
func Encode(s blit.Surface, img image.Image) error {
	if img == nil {
		return errors.NilParam()
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if ycc, ok := img.(*image.YCbCr); ok && s.Depth == 12 &&
		ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 && ycc.Rect == s.Bounds() {
		encodeNV12FromYCbCr(s, ycc)
		return nil
	}
	m := toRGBA(img, s.Width, s.Height)
	switch s.Depth {
	case 12:
		encodeNV12(s, m)
	case 16:
		encodeRGB565(s, m)
	case 24, 32:
		encodeXRGB(s, m)
	default:
		return errors.New(blit.ErrUnsupportedFormat)
	}
	return nil
}

func toRGBA(img image.Image, w, h int) *image.RGBA {
	r := image.Rect(0, 0, w, h)
	if m, ok := img.(*image.RGBA); ok && m.Rect == r {
		return m
	}
	m := image.NewRGBA(r)
	draw.Draw(m, r, img, img.Bounds().Min, draw.Src)
	return m
}

func encodeNV12FromYCbCr(s blit.Surface, img *image.YCbCr) {
	stride := s.Stride()
	for y := 0; y < s.Height; y++ {
		copy(s.Data[y*stride:y*stride+s.Width], img.Y[y*img.YStride:])
	}
	uv := s.Data[stride*s.Height:]
	rows := min((s.Height+1)/2, len(uv)/stride)
	cols := min((s.Width+1)/2, stride/2)
	for y := 0; y < rows; y++ {
		row := uv[y*stride:]
		for x := 0; x < cols; x++ {
			row[2*x] = img.Cb[y*img.CStride+x]
			row[2*x+1] = img.Cr[y*img.CStride+x]
		}
	}
}

func encodeNV12(s blit.Surface, m *image.RGBA) {
	stride := s.Stride()
	for y := 0; y < s.Height; y++ {
		pix := m.Pix[y*m.Stride:]
		row := s.Data[y*stride:]
		for x := 0; x < s.Width; x++ {
			row[x], _, _ = color.RGBToYCbCr(pix[4*x], pix[4*x+1], pix[4*x+2])
		}
	}
	uv := s.Data[stride*s.Height:]
	rows := min((s.Height+1)/2, len(uv)/stride)
	cols := min((s.Width+1)/2, stride/2)
	for cy := 0; cy < rows; cy++ {
		row := uv[cy*stride:]
		for cx := 0; cx < cols; cx++ {
			// average the 2x2 block
			var r, g, b, n int
			for py := 2 * cy; py < min(2*cy+2, s.Height); py++ {
				for px := 2 * cx; px < min(2*cx+2, s.Width); px++ {
					i := py*m.Stride + 4*px
					r += int(m.Pix[i])
					g += int(m.Pix[i+1])
					b += int(m.Pix[i+2])
					n++
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8(r/n), uint8(g/n), uint8(b/n))
			row[2*cx] = cb
			row[2*cx+1] = cr
		}
	}
}

func encodeRGB565(s blit.Surface, m *image.RGBA) {
	for y := 0; y < s.Height; y++ {
		pix := m.Pix[y*m.Stride:]
		row := s.Data[y*s.Pitch:]
		for x := 0; x < s.Width; x++ {
			v := uint16(pix[4*x]>>3)<<11 | uint16(pix[4*x+1]>>2)<<5 | uint16(pix[4*x+2]>>3)
			binary.LittleEndian.PutUint16(row[2*x:], v)
		}
	}
}

func encodeXRGB(s blit.Surface, m *image.RGBA) {
	bpp := s.Depth / 8
	for y := 0; y < s.Height; y++ {
		pix := m.Pix[y*m.Stride:]
		row := s.Data[y*s.Pitch:]
		for x := 0; x < s.Width; x++ {
			p := row[bpp*x:]
			p[0] = pix[4*x+2]
			p[1] = pix[4*x+1]
			p[2] = pix[4*x]
			if bpp == 4 {
				p[3] = 0xff
			}
		}
	}
}
