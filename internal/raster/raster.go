// Package raster holds the immutable pixel buffer shared by every stage of
// the face pipeline and the conversions to and from gocv matrices.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	apperrors "go-face-verifier/internal/errors"
)

// ColorOrder names the channel layout of Pix.
type ColorOrder int

const (
	Gray ColorOrder = iota
	BGR
)

func (o ColorOrder) String() string {
	switch o {
	case Gray:
		return "gray"
	case BGR:
		return "bgr"
	}
	return fmt.Sprintf("order(%d)", int(o))
}

// Channels returns the channel count implied by the order.
func (o ColorOrder) Channels() int {
	if o == Gray {
		return 1
	}
	return 3
}

// Image is a tightly packed, row-major 8-bit pixel buffer. Stages never write
// into an Image they received; they allocate a new one.
type Image struct {
	Width    int
	Height   int
	Channels int
	Order    ColorOrder
	Pix      []byte
}

// New allocates a zeroed image.
func New(width, height int, order ColorOrder) *Image {
	ch := order.Channels()
	return &Image{
		Width:    width,
		Height:   height,
		Channels: ch,
		Order:    order,
		Pix:      make([]byte, width*height*ch),
	}
}

// Filled allocates an image with every pixel set to c.
func Filled(width, height int, c color.RGBA) *Image {
	img := New(width, height, BGR)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c.B, c.G, c.R
	}
	return img
}

func (im *Image) Empty() bool {
	return im == nil || im.Width <= 0 || im.Height <= 0 || len(im.Pix) == 0
}

func (im *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.Width, im.Height)
}

func (im *Image) Stride() int {
	return im.Width * im.Channels
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	cp := *im
	cp.Pix = append([]byte(nil), im.Pix...)
	return &cp
}

// Crop copies the pixels inside r, which must lie within the image.
func (im *Image) Crop(r image.Rectangle) (*Image, error) {
	r = r.Intersect(im.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop %v of %dx%d image: %w", r, im.Width, im.Height, apperrors.ErrDegenerateCrop)
	}
	out := New(r.Dx(), r.Dy(), im.Order)
	rowBytes := r.Dx() * im.Channels
	for y := 0; y < r.Dy(); y++ {
		src := (r.Min.Y+y)*im.Stride() + r.Min.X*im.Channels
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], im.Pix[src:src+rowBytes])
	}
	return out, nil
}

// FromImage converts any image.Image into a BGR raster.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	out := New(b.Dx(), b.Dy(), BGR)
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < out.Height; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				i := (y*out.Width + x) * 3
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = row[x*4+2], row[x*4+1], row[x*4]
			}
		}
		return out
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.RGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			i := (y*out.Width + x) * 3
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.B, c.G, c.R
		}
	}
	return out
}

// ToRGBA converts the raster into an *image.RGBA for encoding or drawing.
func (im *Image) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(im.Bounds())
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			i := (y*im.Width + x) * im.Channels
			o := y*dst.Stride + x*4
			if im.Order == Gray {
				v := im.Pix[i]
				dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2] = v, v, v
			} else {
				dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2] = im.Pix[i+2], im.Pix[i+1], im.Pix[i]
			}
			dst.Pix[o+3] = 0xff
		}
	}
	return dst
}

func matType(channels int) (gocv.MatType, error) {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1, nil
	case 3:
		return gocv.MatTypeCV8UC3, nil
	}
	return 0, fmt.Errorf("%d channels: %w", channels, apperrors.ErrUnsupportedFormat)
}

// ToMat returns a Mat owning its own copy of the pixels. The caller closes it.
func (im *Image) ToMat() (gocv.Mat, error) {
	if im.Empty() {
		return gocv.NewMat(), apperrors.ErrEmptyImage
	}
	mt, err := matType(im.Channels)
	if err != nil {
		return gocv.NewMat(), err
	}
	view, err := gocv.NewMatFromBytes(im.Height, im.Width, mt, im.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap pixels: %w", err)
	}
	defer view.Close()
	return view.Clone(), nil
}

// GrayMat returns a single channel Mat of the image.
func (im *Image) GrayMat() (gocv.Mat, error) {
	m, err := im.ToMat()
	if err != nil || im.Order == Gray {
		return m, err
	}
	defer m.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

// FromMat copies an 8-bit, 1 or 3 channel Mat into a raster.
func FromMat(m gocv.Mat) (*Image, error) {
	if m.Empty() {
		return nil, apperrors.ErrEmptyImage
	}
	src := m
	if !m.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}
	order := BGR
	switch src.Channels() {
	case 1:
		order = Gray
	case 3:
	default:
		return nil, fmt.Errorf("%d channels: %w", src.Channels(), apperrors.ErrUnsupportedFormat)
	}
	return &Image{
		Width:    src.Cols(),
		Height:   src.Rows(),
		Channels: src.Channels(),
		Order:    order,
		Pix:      src.ToBytes(),
	}, nil
}

// BGRMat returns a three channel Mat of the image, expanding grayscale.
func (im *Image) BGRMat() (gocv.Mat, error) {
	m, err := im.ToMat()
	if err != nil || im.Order == BGR {
		return m, err
	}
	defer m.Close()
	bgr := gocv.NewMat()
	gocv.CvtColor(m, &bgr, gocv.ColorGrayToBGR)
	return bgr, nil
}
