package storage

import (
	"context"
	"errors"
)

// ImageSource returns the raw bytes of an image at a location.
type ImageSource interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FaceStore persists an encoded face image and returns where it went.
type FaceStore interface {
	SaveFace(ctx context.Context, name string, data []byte) (string, error)
}

// ErrImageTooLarge is returned when a download exceeds the configured limit.
var ErrImageTooLarge = errors.New("image too large")
