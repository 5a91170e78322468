package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type memoryBlobs struct {
	objects map[string][]byte
}

func (m *memoryBlobs) download(_ context.Context, container, blob string) (io.ReadCloser, error) {
	data, ok := m.objects[container+"/"+blob]
	if !ok {
		return nil, fmt.Errorf("blob %s/%s not found", container, blob)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBlobs) upload(_ context.Context, container, blob string, data []byte) error {
	m.objects[container+"/"+blob] = bytes.Clone(data)
	return nil
}

func TestParseBlobURL(t *testing.T) {
	tests := []struct {
		url       string
		container string
		blob      string
		wantErr   bool
	}{
		{"azblob://cards/2024/front.jpg", "cards", "2024/front.jpg", false},
		{"azblob://cards/", "", "", true},
		{"https://cards/front.jpg", "", "", true},
		{"azblob:///front.jpg", "", "", true},
	}
	for _, tt := range tests {
		c, b, err := ParseBlobURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tt.url, tt.wantErr, err)
			continue
		}
		if c != tt.container || b != tt.blob {
			t.Errorf("%s: expected %s/%s, got %s/%s", tt.url, tt.container, tt.blob, c, b)
		}
	}
}

func TestBlobStorageRoundTrip(t *testing.T) {
	store := newBlobStorage(&memoryBlobs{objects: map[string][]byte{}}, "faces")
	ctx := context.Background()

	location, err := store.SaveFace(ctx, "face_1.png", pngData)
	if err != nil {
		t.Fatalf("SaveFace: %v", err)
	}
	if location != "azblob://faces/face_1.png" {
		t.Errorf("Unexpected location %s", location)
	}

	data, err := store.Fetch(ctx, location)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, pngData) {
		t.Error("Expected fetched blob to equal the saved one")
	}

	if _, err := store.Fetch(ctx, "azblob://faces/missing.png"); err == nil {
		t.Error("Expected error for missing blob")
	}
}

func TestBlobStorageSizeLimit(t *testing.T) {
	blobs := &memoryBlobs{objects: map[string][]byte{"cards/big.jpg": make([]byte, 64)}}
	store := newBlobStorage(blobs, "faces")
	store.maxBytes = 32

	if _, err := store.Fetch(context.Background(), "azblob://cards/big.jpg"); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
}

func TestLocalFaceStoreAndFileSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "faces")
	store := NewLocalFaceStore(dir)
	ctx := context.Background()

	path, err := store.SaveFace(ctx, "../escape.png", pngData)
	if err != nil {
		t.Fatalf("SaveFace: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Expected face inside %s, got %s", dir, path)
	}

	src := NewFileSource()
	for _, loc := range []string{path, "file://" + path} {
		data, err := src.Fetch(ctx, loc)
		if err != nil {
			t.Fatalf("Fetch %s: %v", loc, err)
		}
		if !bytes.Equal(data, pngData) {
			t.Errorf("Fetch %s returned different bytes", loc)
		}
	}

	if _, err := src.Fetch(ctx, filepath.Join(dir, "nope.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
