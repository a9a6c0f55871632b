//go:build vips && cgo

package imgio

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	startupOnce sync.Once
	shutdownMu  sync.Mutex
	started     bool
)

// Startup initializes the libvips runtime once per process.
func Startup() error {
	startupOnce.Do(func() {
		vips.Startup(&vips.Config{
			MaxCacheFiles: 0,
			MaxCacheMem:   128 * 1024 * 1024,
			MaxCacheSize:  100,
		})

		shutdownMu.Lock()
		started = true
		shutdownMu.Unlock()
	})
	return nil
}

// Shutdown tears down the libvips runtime if Startup ran.
func Shutdown() {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if !started {
		return
	}
	vips.Shutdown()
	started = false
}

// ExoticDecodeAvailable reports whether HEIC/AVIF and SVG decode are in
// this build.
const ExoticDecodeAvailable = true

// decodeExotic routes HEIC/AVIF and SVG through libvips, bridging back to a
// standard image via an intermediate lossless PNG export.
func decodeExotic(data []byte, format Format) (image.Image, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips decode %s: %w", format, err)
	}
	defer ref.Close()

	params := vips.NewPngExportParams()
	out, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("vips export %s: %w", format, err)
	}
	return png.Decode(bytes.NewReader(out))
}
