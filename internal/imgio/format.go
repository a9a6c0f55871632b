// Package imgio handles everything between the filesystem and a decoded
// image: format sniffing, input validation, output path resolution, and
// decode/encode with the alpha-flattening rules each container needs.
package imgio

import (
	"bytes"
	"io"
	"os"
)

// Format identifies an image container by content, never by extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatWEBP
	FormatBMP
	FormatTIFF
	FormatHEIC
	FormatSVG
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatGIF:
		return "GIF"
	case FormatWEBP:
		return "WEBP"
	case FormatBMP:
		return "BMP"
	case FormatTIFF:
		return "TIFF"
	case FormatHEIC:
		return "HEIC"
	case FormatSVG:
		return "SVG"
	default:
		return "Unknown"
	}
}

// Ext returns the canonical file extension for a sniffed format, or "" for
// FormatUnknown.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	case FormatWEBP:
		return ".webp"
	case FormatBMP:
		return ".bmp"
	case FormatTIFF:
		return ".tiff"
	case FormatHEIC:
		return ".heic"
	case FormatSVG:
		return ".svg"
	default:
		return ""
	}
}

// SniffLen is how many leading bytes DetectFormat wants. Shorter slices are
// fine; missing bytes simply fail the longer signatures.
const SniffLen = 32

var (
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	pngSig    = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	gif87Sig  = []byte("GIF87a")
	gif89Sig  = []byte("GIF89a")
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	bmpSig    = []byte("BM")
	tiffSigLE = []byte{'I', 'I', 0x2a, 0x00}
	tiffSigBE = []byte{'M', 'M', 0x00, 0x2a}
	ftypSig   = []byte("ftyp")
	xmlSig    = []byte("<?xml")
	svgSig    = []byte("<svg")

	heifBrands = [][]byte{
		[]byte("heic"), []byte("heix"), []byte("hevc"),
		[]byte("mif1"), []byte("msf1"), []byte("avif"),
	}
)

// DetectFormat classifies leading file bytes into a Format. It never decodes
// pixel data and never fails: no match is FormatUnknown, not an error.
func DetectFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, jpegSig):
		return FormatJPEG
	case bytes.HasPrefix(header, pngSig):
		return FormatPNG
	case bytes.HasPrefix(header, gif87Sig), bytes.HasPrefix(header, gif89Sig):
		return FormatGIF
	case bytes.HasPrefix(header, riffSig) && len(header) >= 12 && bytes.Equal(header[8:12], webpSig):
		return FormatWEBP
	case bytes.HasPrefix(header, bmpSig):
		return FormatBMP
	case bytes.HasPrefix(header, tiffSigLE), bytes.HasPrefix(header, tiffSigBE):
		return FormatTIFF
	}

	if len(header) >= 12 && bytes.Equal(header[4:8], ftypSig) {
		brand := header[8:12]
		for _, b := range heifBrands {
			if bytes.Equal(brand, b) {
				return FormatHEIC
			}
		}
	}

	stripped := bytes.TrimLeft(header, " \t\r\n")
	if bytes.HasPrefix(stripped, xmlSig) || bytes.HasPrefix(stripped, svgSig) {
		return FormatSVG
	}

	return FormatUnknown
}

// SniffFile reads the leading bytes of a file and classifies them.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	header := make([]byte, SniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	return DetectFormat(header[:n]), nil
}
