// Package extract crops detected faces out of a source image and brings
// them to a canonical size.
package extract

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/raster"
	"go-face-verifier/pkg/models"
)

const (
	DefaultPadding = 0.2
	DefaultSize    = 600
)

// Background fills the canvas around a normalized face.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// FaceCrop is a copy of a padded face region. Region is in source image
// coordinates.
type FaceCrop struct {
	Image  *raster.Image
	Box    models.BoundingBox
	Region image.Rectangle
}

// NormalizedFace is a face scaled into a fixed size canvas. Placement is
// where the crop ended up on the canvas.
type NormalizedFace struct {
	Image     *raster.Image
	Placement image.Rectangle
	Scale     float64
}

// Extract copies box, grown by padding times its size on every side and
// clamped to the image, out of img.
func Extract(img *raster.Image, box models.BoundingBox, padding float64) (*FaceCrop, error) {
	if padding < 0 {
		return nil, fmt.Errorf("padding %.3f: %w", padding, apperrors.ErrInvalidPadding)
	}
	if img.Empty() {
		return nil, apperrors.ErrEmptyImage
	}
	if box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("box %+v: %w", box, apperrors.ErrDegenerateCrop)
	}

	padW := int(float64(box.Width) * padding)
	padH := int(float64(box.Height) * padding)
	region := image.Rect(box.X-padW, box.Y-padH, box.X+box.Width+padW, box.Y+box.Height+padH).
		Intersect(img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("box %+v outside %dx%d image: %w", box, img.Width, img.Height, apperrors.ErrDegenerateCrop)
	}

	pix, err := img.Crop(region)
	if err != nil {
		return nil, err
	}
	return &FaceCrop{Image: pix, Box: box, Region: region}, nil
}

// Normalize fits crop into a width x height canvas. The crop is only ever
// shrunk, keeps its aspect ratio and is centered on Background. The result
// is always BGR and always exactly the requested size.
func Normalize(crop *FaceCrop, width, height int) (*NormalizedFace, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("size %dx%d: %w", width, height, apperrors.ErrInvalidSize)
	}
	if crop == nil || crop.Image.Empty() {
		return nil, apperrors.ErrEmptyImage
	}

	src := crop.Image
	scale := 1.0
	if sx := float64(width) / float64(src.Width); sx < scale {
		scale = sx
	}
	if sy := float64(height) / float64(src.Height); sy < scale {
		scale = sy
	}
	w := max(1, min(width, int(math.Round(float64(src.Width)*scale))))
	h := max(1, min(height, int(math.Round(float64(src.Height)*scale))))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	off := image.Point{X: (width - w) / 2, Y: (height - h) / 2}
	placement := image.Rectangle{Min: off, Max: off.Add(image.Point{X: w, Y: h})}
	rgba := src.ToRGBA()
	if w == src.Width && h == src.Height {
		draw.Draw(canvas, placement, rgba, image.Point{}, draw.Src)
	} else {
		draw.CatmullRom.Scale(canvas, placement, rgba, rgba.Bounds(), draw.Src, nil)
	}

	return &NormalizedFace{Image: raster.FromImage(canvas), Placement: placement, Scale: scale}, nil
}

// ExtractNormalized runs Extract then Normalize into a size x size canvas.
func ExtractNormalized(img *raster.Image, box models.BoundingBox, padding float64, size int) (*NormalizedFace, error) {
	crop, err := Extract(img, box, padding)
	if err != nil {
		return nil, err
	}
	return Normalize(crop, size, size)
}
