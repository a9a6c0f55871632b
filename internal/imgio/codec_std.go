//go:build !vips || !cgo

package imgio

import (
	"image"

	"gimg/internal/imgerr"
)

// Startup is a no-op without the vips build tag.
func Startup() error { return nil }

// Shutdown is a no-op without the vips build tag.
func Shutdown() {}

// ExoticDecodeAvailable reports whether HEIC/AVIF and SVG decode are in
// this build.
const ExoticDecodeAvailable = false

func decodeExotic(_ []byte, format Format) (image.Image, error) {
	return nil, &imgerr.CapabilityUnavailableError{
		Capability: format.String() + " decode",
		Reason:     "build without the vips tag (libvips required)",
	}
}
