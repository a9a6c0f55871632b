package imgio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"gimg/internal/imgerr"
)

// SaveOptions control lossy encode quality and PNG effort.
type SaveOptions struct {
	Quality int  // 1..100 for JPEG/WEBP; 0 means the per-format default
	PNGBest bool // use maximum PNG compression
}

// WriteExtensions lists the extensions Save can encode to.
var WriteExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif"}

// Save encodes img to the container implied by path's extension. Images
// carrying alpha are flattened onto white before encoding to a format
// without alpha support.
func Save(path string, img image.Image, opts SaveOptions) error {
	ext := strings.ToLower(filepath.Ext(path))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch ext {
	case ".jpg", ".jpeg":
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		if err := jpeg.Encode(f, Flatten(img), &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case ".png":
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		if opts.PNGBest {
			encoder.CompressionLevel = png.BestCompression
		}
		if err := encoder.Encode(f, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case ".gif":
		if err := gif.Encode(f, img, &gif.Options{NumColors: 256}); err != nil {
			return fmt.Errorf("encode gif: %w", err)
		}
	case ".webp":
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		if err := webp.Encode(f, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
	case ".bmp":
		if err := bmp.Encode(f, Flatten(img)); err != nil {
			return fmt.Errorf("encode bmp: %w", err)
		}
	case ".tiff", ".tif":
		if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("encode tiff: %w", err)
		}
	default:
		return &imgerr.ValidationError{Msg: "unsupported output format: " + ext}
	}

	return f.Sync()
}

// Flatten composites an alpha-bearing image onto an opaque white background.
// Already-opaque images pass through untouched.
func Flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
