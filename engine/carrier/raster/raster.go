// Package raster stores a bitstream in the least significant bits of a PNG
// image's color channels.
//
// Bits are written in a fixed scan order: pixels row-major from the top-left
// corner, channels R, G, B, A within each pixel. The order never depends on
// image content, so no key is needed to read the bits back.
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/pkg/errors"

	"github.com/mirseo/updrm/engine/bitstream"
	"github.com/mirseo/updrm/engine/carrier"
)

// Channels is the number of color channels carrying one bit each per pixel.
const Channels = 4

// Surface is a decoded PNG held as 8-bit non-premultiplied RGBA.
type Surface struct {
	img *image.NRGBA
}

var _ carrier.Surface = (*Surface)(nil)

// Open decodes PNG data into an editable Surface. maxPixels bounds the
// decoded image size; zero means no limit.
func Open(data []byte, maxPixels int) (*Surface, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(carrier.ErrParse, err.Error())
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, errors.Wrapf(carrier.ErrParse, "image is %dx%d, limit is %d pixels",
			cfg.Width, cfg.Height, maxPixels)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(carrier.ErrParse, err.Error())
	}
	return &Surface{img: toNRGBA(img)}, nil
}

// New wraps an existing image. The image is copied.
func New(img image.Image) *Surface {
	return &Surface{img: toNRGBA(img)}
}

// toNRGBA copies img into a zero-origin NRGBA image. NRGBA sources are copied
// byte for byte so existing low bits are preserved exactly.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			from := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*Channels], src.Pix[from:from+b.Dx()*Channels])
		}
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetNRGBA(x, y, color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
		}
	}
	return dst
}

// Image returns the underlying image.
func (s *Surface) Image() *image.NRGBA {
	return s.img
}

// Capacity returns width * height * 4 bits.
func (s *Surface) Capacity() int {
	b := s.img.Bounds()
	return b.Dx() * b.Dy() * Channels
}

// offset maps a scan order position to an index in the pixel buffer.
func (s *Surface) offset(i int) int {
	width := s.img.Bounds().Dx()
	pixel := i / Channels
	return (pixel/width)*s.img.Stride + (pixel%width)*Channels + i%Channels
}

// Embed overwrites the least significant bit of the first bits.Len()
// channels in scan order. All other bits, and all channels past the end of
// the stream, are left untouched.
func (s *Surface) Embed(bits bitstream.Bits) error {
	if bits.Len() > s.Capacity() {
		return errors.Wrapf(carrier.ErrInsufficientCapacity, "need %d bits, image holds %d",
			bits.Len(), s.Capacity())
	}
	for i := 0; i < bits.Len(); i++ {
		bit, _ := bits.Bit(i)
		off := s.offset(i)
		s.img.Pix[off] = s.img.Pix[off]&^1 | bit
	}
	return nil
}

// Extract returns the channel LSBs in scan order. Positions past the end of
// the image are unreadable.
func (s *Surface) Extract() (bitstream.Source, error) {
	return lsbSource{s}, nil
}

// Encode re-encodes the image as PNG.
func (s *Surface) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, s.img); err != nil {
		return nil, errors.Wrap(err, "failed to encode png")
	}
	return buf.Bytes(), nil
}

type lsbSource struct {
	s *Surface
}

func (l lsbSource) Len() int {
	return l.s.Capacity()
}

func (l lsbSource) Bit(i int) (byte, bool) {
	if i < 0 || i >= l.s.Capacity() {
		return 0, false
	}
	return l.s.img.Pix[l.s.offset(i)] & 1, true
}
