package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "go-face-verifier/internal/errors"
)

// Decode reads an encoded image and returns it as a BGR raster along with
// the detected format name.
func Decode(data []byte) (*Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperrors.ErrUnsupportedFormat, err)
	}
	out := FromImage(img)
	if out.Empty() {
		return nil, format, apperrors.ErrEmptyImage
	}
	return out, format, nil
}

// DecodeReader is Decode over a stream, reading at most limit bytes when
// limit is positive.
func DecodeReader(r io.Reader, limit int64) (*Image, string, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return Decode(data)
}

// EncodePNG writes the image as PNG.
func (im *Image) EncodePNG(w io.Writer) error {
	return png.Encode(w, im.ToRGBA())
}

// EncodeJPEG writes the image as JPEG at the given quality.
func (im *Image) EncodeJPEG(w io.Writer, quality int) error {
	return jpeg.Encode(w, im.ToRGBA(), &jpeg.Options{Quality: quality})
}

// PNGBytes is EncodePNG into a fresh buffer.
func (im *Image) PNGBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := im.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
