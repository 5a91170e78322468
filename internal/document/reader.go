// Package document reads the printed text of ID documents.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"go-face-verifier/internal/preprocess"
	"go-face-verifier/internal/raster"
)

var ErrReaderClosed = errors.New("text reader closed")

// TextReader returns the text printed on a document image.
type TextReader interface {
	ReadText(ctx context.Context, img *raster.Image) (string, error)
	Close() error
}

// TesseractReader runs Tesseract on the deskewed, contrast enhanced card.
type TesseractReader struct {
	mu     sync.Mutex
	client *gosseract.Client
	pre    *preprocess.Preprocessor
}

// NewTesseractReader creates a reader for language, e.g. "eng".
func NewTesseractReader(language string) (*TesseractReader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	return &TesseractReader{
		client: client,
		pre:    preprocess.New(preprocess.DefaultOptions()),
	}, nil
}

func (r *TesseractReader) ReadText(ctx context.Context, img *raster.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := r.pre.Preprocess(img)
	if err != nil {
		return "", err
	}
	png, err := res.Enhanced.PNGBytes()
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	// A gosseract client holds one image at a time.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return "", ErrReaderClosed
	}
	if err := r.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (r *TesseractReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		return err
	}
	return nil
}
