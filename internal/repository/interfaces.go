package repository

import (
	"context"

	"go-face-verifier/internal/raster"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves and decodes an image.
	FetchImage(ctx context.Context, location string) (*raster.Image, *ImageMetadata, error)

	// FetchBytes retrieves the raw encoded bytes of an image.
	FetchBytes(ctx context.Context, location string) ([]byte, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(location string) error
}

// ImageMetadata describes a fetched image.
type ImageMetadata struct {
	Location      string
	ContentLength int64
	Width         int
	Height        int
	Format        string
}
