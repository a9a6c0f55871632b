package ops

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"gimg/internal/imgerr"
)

// FontSet holds the parsed typefaces used for watermark and meme text.
// Loaded once at construction; a configured font file overrides both the
// regular and bold faces.
type FontSet struct {
	regular *sfnt.Font
	bold    *sfnt.Font
}

// LoadFonts parses the embedded Go fonts, or the configured TTF when set.
func LoadFonts(fontFile string) (*FontSet, error) {
	if fontFile != "" {
		data, err := os.ReadFile(fontFile)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font file %s: %w", fontFile, err)
		}
		return &FontSet{regular: f, bold: f}, nil
	}

	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded bold font: %w", err)
	}
	return &FontSet{regular: regular, bold: bold}, nil
}

// Face builds a sized face from the set.
func (fs *FontSet) Face(bold bool, size float64) (font.Face, error) {
	f := fs.regular
	if bold {
		f = fs.bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

var namedColors = map[string]color.NRGBA{
	"white":  {255, 255, 255, 255},
	"black":  {0, 0, 0, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
}

// parseColor accepts a known color name or a hex code (#RGB, #RRGGBB,
// #RRGGBBAA).
func parseColor(s string) (color.NRGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[name]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	parse := func(sub string) (uint8, bool) {
		var v uint8
		for _, ch := range sub {
			var d uint8
			switch {
			case ch >= '0' && ch <= '9':
				d = uint8(ch - '0')
			case ch >= 'a' && ch <= 'f':
				d = uint8(ch-'a') + 10
			case ch >= 'A' && ch <= 'F':
				d = uint8(ch-'A') + 10
			default:
				return 0, false
			}
			v = v<<4 | d
		}
		return v, true
	}

	switch len(hex) {
	case 3:
		r, ok1 := parse(hex[0:1])
		g, ok2 := parse(hex[1:2])
		b, ok3 := parse(hex[2:3])
		if ok1 && ok2 && ok3 {
			return color.NRGBA{r*16 + r, g*16 + g, b*16 + b, 255}, nil
		}
	case 6, 8:
		r, ok1 := parse(hex[0:2])
		g, ok2 := parse(hex[2:4])
		b, ok3 := parse(hex[4:6])
		a := uint8(255)
		ok4 := true
		if len(hex) == 8 {
			a, ok4 = parse(hex[6:8])
		}
		if ok1 && ok2 && ok3 && ok4 {
			return color.NRGBA{r, g, b, a}, nil
		}
	}
	return color.NRGBA{}, &imgerr.ValidationError{
		Msg: fmt.Sprintf("unknown color %q: use a name (white, red, ...) or hex (#FF0000)", s),
	}
}

// sanitizeText strips control characters and caps the length.
func sanitizeText(text string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, text)
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}

// renderTextBlock rasterizes text onto its own transparent bitmap with a
// small padding, so later rotation and tiling never clip glyph edges.
func renderTextBlock(face font.Face, text string, col color.NRGBA) *image.NRGBA {
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	tw, th := measure.MeasureString(text)

	const pad = 10
	w := int(tw) + 2*pad
	h := int(th) + 2*pad
	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawStringAnchored(text, float64(w)/2, float64(h)/2, 0.5, 0.5)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	copyToNRGBA(out, dc.Image())
	return out
}

func copyToNRGBA(dst *image.NRGBA, src image.Image) {
	if s, ok := src.(*image.RGBA); ok {
		// gg renders premultiplied; unmultiply into the overlay.
		for y := 0; y < dst.Bounds().Dy(); y++ {
			for x := 0; x < dst.Bounds().Dx(); x++ {
				dst.Set(x, y, s.RGBAAt(x, y))
			}
		}
		return
	}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
}

// placePosition maps a position keyword to the top-left corner for a block
// of the given size. Unknown keywords fall back to bottom-right.
func placePosition(pos string, imgW, imgH, blockW, blockH int) (int, int) {
	const margin = 10
	switch pos {
	case "center":
		return (imgW - blockW) / 2, (imgH - blockH) / 2
	case "top-left":
		return margin, margin
	case "top-right":
		return imgW - blockW - margin, margin
	case "bottom-left":
		return margin, imgH - blockH - margin
	default: // bottom-right
		return imgW - blockW - margin, imgH - blockH - margin
	}
}
