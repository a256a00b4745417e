package texture

import (
	"errors"
	"fmt"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

var (
	// ErrNotImage is returned for content that does not sniff as an image.
	ErrNotImage = errors.New("content is not an image")
	// ErrUnsupportedScheme is returned for URIs the fetcher cannot resolve.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
	// ErrTooLarge is returned for downloads over the size limit.
	ErrTooLarge = errors.New("image too large")
)

// FetchError reports a slot whose image could not be fetched or decoded.
// The slot keeps its placeholder.
type FetchError struct {
	Slot string
	URI  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load texture %s from %s: %v", e.Slot, e.URI, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeviceError reports a non-zero device error code observed right after a
// slot's upload.
type DeviceError struct {
	Slot string
	Code gpu.ErrorCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error 0x%04x after uploading texture %s", uint32(e.Code), e.Slot)
}
