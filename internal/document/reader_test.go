package document

import (
	"context"
	"errors"
	"testing"

	"go-face-verifier/internal/raster"
)

func newTestReader(t *testing.T) *TesseractReader {
	t.Helper()
	r, err := NewTesseractReader("eng")
	if err != nil {
		t.Skipf("tesseract unavailable: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReadTextCancelledContext(t *testing.T) {
	r := newTestReader(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := raster.New(64, 64, raster.BGR)
	if _, err := r.ReadText(ctx, img); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestReadTextEmptyImage(t *testing.T) {
	r := newTestReader(t)
	if _, err := r.ReadText(context.Background(), &raster.Image{}); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestReadTextAfterClose(t *testing.T) {
	r := newTestReader(t)
	if err := r.Close(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	img := raster.New(64, 64, raster.BGR)
	if _, err := r.ReadText(context.Background(), img); !errors.Is(err, ErrReaderClosed) {
		t.Errorf("Expected ErrReaderClosed, got %v", err)
	}
}
