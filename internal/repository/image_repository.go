package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/raster"
	"go-face-verifier/internal/storage"
	"go-face-verifier/pkg/validation"
)

// SchemeFile selects the local filesystem source. Plain paths use it too.
const SchemeFile = "file"

// SourceRepository routes each location to the source registered for its
// URL scheme.
type SourceRepository struct {
	sources   map[string]storage.ImageSource
	urls      *validation.URLValidator
	validator *validation.QualityValidator
}

// NewSourceRepository creates a repository with no sources. Register adds
// them.
func NewSourceRepository(urls *validation.URLValidator, validator *validation.QualityValidator) *SourceRepository {
	if urls == nil {
		urls = validation.NewURLValidator()
	}
	if validator == nil {
		validator = validation.NewQualityValidator()
	}
	return &SourceRepository{
		sources:   make(map[string]storage.ImageSource),
		urls:      urls,
		validator: validator,
	}
}

// Register serves scheme from src.
func (r *SourceRepository) Register(scheme string, src storage.ImageSource) *SourceRepository {
	r.sources[strings.ToLower(scheme)] = src
	return r
}

func schemeOf(location string) string {
	if !strings.Contains(location, "://") {
		return SchemeFile
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// ValidateImageURL accepts local locations only when a file source is
// registered; everything else goes through the URL validator.
func (r *SourceRepository) ValidateImageURL(location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return apperrors.NewValidationError("URL cannot be empty", ErrInvalidImageURL)
	}
	scheme := schemeOf(location)
	if scheme == SchemeFile {
		if _, ok := r.sources[SchemeFile]; !ok {
			return apperrors.NewValidationError("Local files are not accepted", ErrInvalidImageURL)
		}
		return nil
	}
	return r.urls.ValidateImageURL(location)
}

func (r *SourceRepository) FetchBytes(ctx context.Context, location string) ([]byte, error) {
	if err := r.ValidateImageURL(location); err != nil {
		return nil, err
	}
	scheme := schemeOf(location)
	src, ok := r.sources[scheme]
	if !ok {
		return nil, apperrors.NewUnavailableError("No image source for scheme", ErrSourceUnavailable).WithDetails(scheme)
	}

	data, err := src.Fetch(ctx, strings.TrimSpace(location))
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, apperrors.NewValidationError("Image is too large", err)
	case errors.Is(err, context.DeadlineExceeded):
		return nil, apperrors.NewTimeoutError("Image fetch timed out", err)
	default:
		return nil, apperrors.NewNetworkError("Failed to fetch image", err).WithDetails(location)
	}
	if err := r.validator.ValidateFileSize(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *SourceRepository) FetchImage(ctx context.Context, location string) (*raster.Image, *ImageMetadata, error) {
	data, err := r.FetchBytes(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	img, meta, err := DecodeUpload(data, r.validator)
	if err != nil {
		return nil, nil, err
	}
	meta.Location = location
	return img, meta, nil
}

// DecodeUpload decodes an encoded image and checks its size and
// dimensions.
func DecodeUpload(data []byte, validator *validation.QualityValidator) (*raster.Image, *ImageMetadata, error) {
	if err := validator.ValidateFileSize(int64(len(data))); err != nil {
		return nil, nil, err
	}
	img, format, err := raster.Decode(data)
	if err != nil {
		return nil, nil, apperrors.Classify(err, "Failed to decode image")
	}
	if err := validator.ValidateDimensions(img.Width, img.Height); err != nil {
		return nil, nil, err
	}
	return img, &ImageMetadata{
		ContentLength: int64(len(data)),
		Width:         img.Width,
		Height:        img.Height,
		Format:        format,
	}, nil
}

var _ ImageRepository = (*SourceRepository)(nil)

// String formats m for log fields.
func (m *ImageMetadata) String() string {
	return fmt.Sprintf("%s %dx%d %dB", m.Format, m.Width, m.Height, m.ContentLength)
}
