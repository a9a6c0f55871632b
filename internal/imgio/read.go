package imgio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded bitmap plus the sniffed source format. It is owned by
// the processor invocation that decoded it and is never shared.
type Image struct {
	Img    image.Image
	Format Format
}

// Mode reports a color-mode tag for the decoded bitmap.
func (im *Image) Mode() string {
	switch im.Img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return "RGBA"
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	default:
		return "RGB"
	}
}

// Width returns the pixel width of the decoded bitmap.
func (im *Image) Width() int { return im.Img.Bounds().Dx() }

// Height returns the pixel height of the decoded bitmap.
func (im *Image) Height() int { return im.Img.Bounds().Dy() }

// Load sniffs and decodes a file. HEIC and SVG route through the libvips
// codec when the build carries it; everything else decodes with the
// registered pure-Go codecs.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	format := DetectFormat(data[:min(len(data), SniffLen)])

	var img image.Image
	switch format {
	case FormatHEIC, FormatSVG:
		img, err = decodeExotic(data, format)
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &Image{Img: img, Format: format}, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
