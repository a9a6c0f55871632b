package ops

import (
	"context"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

const maxMemeText = 200

func memeSpec() *Spec {
	return &Spec{
		Name:    "meme",
		Summary: "Add meme text (bold outlined caption)",
		Suffix:  "meme",
		Params: []ParamDef{
			{Name: "top", Kind: KindString, Usage: "Top text"},
			{Name: "bottom", Kind: KindString, Usage: "Bottom text"},
			{Name: "size", Kind: KindInt, Usage: "Font size (default: auto)", HasRange: true, Min: 4, Max: 1024},
			{Name: "no_caps", Kind: KindBool, Usage: "Disable auto uppercase", Default: false},
		},
		Run: runMeme,
	}
}

func runMeme(ctx context.Context, env *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	top, bottom := req.Values.Str("top"), req.Values.Str("bottom")
	if top == "" && bottom == "" {
		return nil, &imgerr.ValidationError{Msg: "meme requires top and/or bottom text"}
	}

	src, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}
	base := imaging.Clone(src.Img)
	w, h := base.Bounds().Dx(), base.Bounds().Dy()

	fontSize := req.Values.Int("size")
	if fontSize == 0 {
		fontSize = maxInt(20, w/12)
	}
	face, err := env.Fonts.Face(true, float64(fontSize))
	if err != nil {
		return nil, err
	}
	outlineW := maxInt(1, fontSize/15)
	margin := w / 30

	// Captions render on a transparent overlay and composite once, so the
	// outline strokes never double-blend where they overlap glyph fills.
	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)

	metrics := face.Metrics()
	lineHeight := metrics.Ascent.Ceil() + metrics.Descent.Ceil() + 4

	for _, caption := range []struct {
		text  string
		isTop bool
	}{{top, true}, {bottom, false}} {
		if caption.text == "" {
			continue
		}
		text := sanitizeText(caption.text, maxMemeText)
		if !req.Values.Bool("no_caps") {
			text = strings.ToUpper(text)
		}

		lines := wrapText(dc, text, float64(w-margin*2))
		blockH := lineHeight * len(lines)

		yStart := margin
		if !caption.isTop {
			yStart = h - blockH - margin
		}

		for i, line := range lines {
			lw, _ := dc.MeasureString(line)
			x := float64(w)/2 - lw/2
			y := float64(yStart+i*lineHeight) + float64(metrics.Ascent.Ceil())
			drawOutlinedString(dc, line, x, y, outlineW)
		}
	}

	overlay := image.NewNRGBA(image.Rect(0, 0, w, h))
	copyToNRGBA(overlay, dc.Image())
	out := imaging.Overlay(base, overlay, image.Point{}, 1.0)

	if err := imgio.Save(req.OutputPath, out, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}

// wrapText greedily packs words into lines no wider than maxWidth.
func wrapText(dc *gg.Context, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	var lines []string
	current := ""
	for _, word := range words {
		test := strings.TrimSpace(current + " " + word)
		if tw, _ := dc.MeasureString(test); tw <= maxWidth {
			current = test
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		lines = []string{text}
	}
	return lines
}

// drawOutlinedString draws the black outline by stamping the string at every
// offset within the outline radius, then the white fill on top.
func drawOutlinedString(dc *gg.Context, s string, x, y float64, outlineW int) {
	dc.SetColor(color.Black)
	for dx := -outlineW; dx <= outlineW; dx++ {
		for dy := -outlineW; dy <= outlineW; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			dc.DrawString(s, x+float64(dx), y+float64(dy))
		}
	}
	dc.SetColor(color.White)
	dc.DrawString(s, x, y)
}
