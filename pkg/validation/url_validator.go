package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "go-face-verifier/internal/errors"
)

// SchemeBlob addresses an object in the configured blob storage account as
// azblob://<container>/<blob>.
const SchemeBlob = "azblob"

const maxURLLength = 2048

// URLValidator checks image source locations before anything is fetched.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator accepts http, https and blob locations on any host.
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https", SchemeBlob},
	}
}

// NewURLValidatorWithOptions restricts schemes and, when hosts is not empty,
// hosts (blob containers for azblob locations).
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL returns a validation AppError describing the first
// problem with imageURL.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}
	if len(imageURL) > maxURLLength {
		return apperrors.NewValidationError("URL is too long", nil)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(parsed.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil).WithDetails(parsed.Scheme)
	}
	if parsed.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if parsed.Scheme == SchemeBlob && strings.Trim(parsed.Path, "/") == "" {
		return apperrors.NewValidationError("Blob URL must name a blob", nil)
	}
	if len(v.allowedHosts) > 0 && !slices.Contains(v.allowedHosts, parsed.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil).WithDetails(parsed.Hostname())
	}
	return nil
}
