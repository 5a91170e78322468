package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrSourceUnavailable indicates no source is configured for a URL scheme
	ErrSourceUnavailable = errors.New("image source unavailable")
)
