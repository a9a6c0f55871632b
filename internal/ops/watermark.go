package ops

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

const maxWatermarkText = 500

func watermarkSpec() *Spec {
	return &Spec{
		Name:    "watermark",
		Summary: "Add text or image watermark",
		Suffix:  "watermarked",
		Params: []ParamDef{
			{Name: "text", Kind: KindString, Usage: "Watermark text"},
			{Name: "image", Kind: KindString, Usage: "Watermark image file"},
			{
				Name: "pos", Kind: KindString, Usage: "Placement", Default: "bottom-right",
				Enum: []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"},
			},
			{Name: "opacity", Kind: KindFloat, Usage: "Opacity 0.0-1.0", Default: 0.3, HasRange: true, Min: 0, Max: 1},
			{Name: "size", Kind: KindInt, Usage: "Font size (default: auto)", HasRange: true, Min: 4, Max: 1024},
			{Name: "color", Kind: KindString, Usage: "Text color", Default: "white"},
			{Name: "tile", Kind: KindBool, Usage: "Tile watermark across image", Default: false},
			{Name: "angle", Kind: KindFloat, Usage: "Rotation angle for text", Default: 0.0, HasRange: true, Min: -360, Max: 360},
		},
		Run: runWatermark,
	}
}

func runWatermark(ctx context.Context, env *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Values.Str("text") == "" && req.Values.Str("image") == "" {
		return nil, &imgerr.ValidationError{Msg: "watermark requires text or image"}
	}

	src, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}
	base := imaging.Clone(src.Img)
	w, h := base.Bounds().Dx(), base.Bounds().Dy()

	var block *image.NRGBA
	if text := req.Values.Str("text"); text != "" {
		block, err = textWatermarkBlock(env, req.Values, text, w, h)
	} else {
		block, err = imageWatermarkBlock(req.Values, w)
	}
	if err != nil {
		return nil, err
	}

	// The mark is always composed on its own transparent overlay sized to
	// the base image, then alpha-composited once. Tiling and rotation work
	// against the overlay, never the base, so they cannot clip or
	// double-blend.
	overlay := image.NewNRGBA(image.Rect(0, 0, w, h))
	if req.Values.Bool("tile") {
		bw, bh := block.Bounds().Dx(), block.Bounds().Dy()
		spacingX, spacingY := bw+40, bh+40
		for y := -bh; y < h+bh; y += spacingY {
			for x := -bw; x < w+bw; x += spacingX {
				draw.Draw(overlay, block.Bounds().Add(image.Pt(x, y)), block, block.Bounds().Min, draw.Over)
			}
		}
	} else {
		x, y := placePosition(req.Values.Str("pos"), w, h, block.Bounds().Dx(), block.Bounds().Dy())
		draw.Draw(overlay, block.Bounds().Add(image.Pt(x, y)), block, block.Bounds().Min, draw.Over)
	}

	out := imaging.Overlay(base, overlay, image.Point{}, 1.0)
	if err := imgio.Save(req.OutputPath, out, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}

func textWatermarkBlock(env *Env, v Values, text string, imgW, imgH int) (*image.NRGBA, error) {
	text = sanitizeText(text, maxWatermarkText)

	fontSize := v.Int("size")
	if fontSize == 0 {
		fontSize = maxInt(16, minInt(imgW, imgH)/15)
	}
	face, err := env.Fonts.Face(true, float64(fontSize))
	if err != nil {
		return nil, err
	}

	col, err := parseColor(v.Str("color"))
	if err != nil {
		return nil, err
	}
	col.A = uint8(v.Float("opacity")*255 + 0.5)

	block := renderTextBlock(face, text, col)
	if angle := v.Float("angle"); angle != 0 {
		block = imaging.Rotate(block, angle, color.NRGBA{})
	}
	return block, nil
}

func imageWatermarkBlock(v Values, baseW int) (*image.NRGBA, error) {
	mark, err := imgio.Load(v.Str("image"))
	if err != nil {
		return nil, err
	}
	block := imaging.Clone(mark.Img)

	// Cap the mark at a fifth of the base width.
	if maxW := baseW / 5; block.Bounds().Dx() > maxW {
		block = imaging.Resize(block, maxW, 0, imaging.Lanczos)
	}

	if opacity := v.Float("opacity"); opacity < 1.0 {
		p := block.Pix
		for i := 3; i < len(p); i += 4 {
			p[i] = uint8(float64(p[i]) * opacity)
		}
	}
	return block, nil
}
