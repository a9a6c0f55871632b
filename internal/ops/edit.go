package ops

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func editSpec() *Spec {
	return &Spec{
		Name:    "edit",
		Summary: "Photo editor (adjustments, filters, borders, frames)",
		Suffix:  "edited",
		Params: []ParamDef{
			{Name: "brightness", Kind: KindFloat, Usage: "Brightness multiplier (1.0 = unchanged)", HasRange: true, Min: 0, Max: 10},
			{Name: "contrast", Kind: KindFloat, Usage: "Contrast multiplier (1.0 = unchanged)", HasRange: true, Min: 0, Max: 10},
			{Name: "saturation", Kind: KindFloat, Usage: "Saturation multiplier (0 = grayscale)", HasRange: true, Min: 0, Max: 10},
			{Name: "sharpness", Kind: KindFloat, Usage: "Sharpness multiplier (1.0 = unchanged)", HasRange: true, Min: 0, Max: 10},
			{Name: "hue", Kind: KindFloat, Usage: "Hue shift in degrees", HasRange: true, Min: -180, Max: 180},
			{Name: "filter", Kind: KindString, Usage: "Named filter preset", Enum: ValidFilters},
			{Name: "flip", Kind: KindString, Usage: "Flip axis", Enum: []string{"horizontal", "vertical"}},
			{Name: "auto_enhance", Kind: KindBool, Usage: "Auto adjust brightness/contrast", Default: false},
			{Name: "border", Kind: KindInt, Usage: "Solid border width in pixels", HasRange: true, Min: 1, Max: 500},
			{Name: "border_color", Kind: KindString, Usage: "Border color", Default: "white"},
			{Name: "frame", Kind: KindString, Usage: "Preset frame style", Enum: []string{"polaroid", "rounded", "shadow"}},
			{Name: "thumbnail", Kind: KindInt, Usage: "Square center-cropped thumbnail size", HasRange: true, Min: 16, Max: 4096},
		},
		Run: runEdit,
	}
}

// editStep is one optional stage of the edit pipeline.
type editStep struct {
	name    string
	enabled func(v Values) bool
	apply   func(img *image.NRGBA, v Values) (*image.NRGBA, error)
}

// editPipeline is the fixed application order. Thumbnail stays last because
// its center crop is destructive; a border applied after it would survive,
// one applied before it gets cropped away.
var editPipeline = []editStep{
	{
		name:    "auto_enhance",
		enabled: func(v Values) bool { return v.Bool("auto_enhance") },
		apply: func(img *image.NRGBA, _ Values) (*image.NRGBA, error) {
			return autoContrast(img, 1), nil
		},
	},
	{
		name:    "brightness",
		enabled: func(v Values) bool { return v.Has("brightness") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return adjustBrightness(img, v.Float("brightness")), nil
		},
	},
	{
		name:    "contrast",
		enabled: func(v Values) bool { return v.Has("contrast") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return adjustContrast(img, v.Float("contrast")), nil
		},
	},
	{
		name:    "saturation",
		enabled: func(v Values) bool { return v.Has("saturation") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return adjustSaturation(img, v.Float("saturation")), nil
		},
	},
	{
		name:    "sharpness",
		enabled: func(v Values) bool { return v.Has("sharpness") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return adjustSharpness(img, v.Float("sharpness")), nil
		},
	},
	{
		name:    "hue",
		enabled: func(v Values) bool { return v.Has("hue") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return shiftHue(img, v.Float("hue")), nil
		},
	},
	{
		name:    "filter",
		enabled: func(v Values) bool { return v.Str("filter") != "" },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return applyFilter(img, v.Str("filter"))
		},
	},
	{
		name:    "flip",
		enabled: func(v Values) bool { return v.Str("flip") != "" },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			if v.Str("flip") == "horizontal" {
				return imaging.FlipH(img), nil
			}
			return imaging.FlipV(img), nil
		},
	},
	{
		name:    "border",
		enabled: func(v Values) bool { return v.Has("border") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			col, err := parseColor(v.Str("border_color"))
			if err != nil {
				return nil, err
			}
			return addBorder(img, v.Int("border"), col), nil
		},
	},
	{
		name:    "frame",
		enabled: func(v Values) bool { return v.Str("frame") != "" },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			return applyFrame(img, v.Str("frame"))
		},
	},
	{
		name:    "thumbnail",
		enabled: func(v Values) bool { return v.Has("thumbnail") },
		apply: func(img *image.NRGBA, v Values) (*image.NRGBA, error) {
			size := v.Int("thumbnail")
			return imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos), nil
		},
	},
}

func runEdit(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requested := false
	for _, step := range editPipeline {
		if step.enabled(req.Values) {
			requested = true
			break
		}
	}
	if !requested {
		return nil, &imgerr.ValidationError{Msg: "edit requires at least one adjustment, filter, or layout option"}
	}

	src, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	img := imaging.Clone(src.Img)
	for _, step := range editPipeline {
		if !step.enabled(req.Values) {
			continue
		}
		img, err = step.apply(img, req.Values)
		if err != nil {
			return nil, err
		}
	}

	if err := imgio.Save(req.OutputPath, img, imgio.SaveOptions{Quality: 95}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}

func addBorder(img *image.NRGBA, width int, col color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx()+2*width, b.Dy()+2*width))
	draw.Draw(out, out.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(width, width, width+b.Dx(), width+b.Dy()), img, b.Min, draw.Src)
	return out
}

func applyFrame(img *image.NRGBA, name string) (*image.NRGBA, error) {
	switch name {
	case "polaroid":
		return framePolaroid(img), nil
	case "rounded":
		return frameRounded(img), nil
	case "shadow":
		return frameShadow(img), nil
	default:
		return nil, &imgerr.ValidationError{Msg: "unknown frame: " + name}
	}
}

// framePolaroid: white frame with a fat bottom strip over a light canvas,
// with a small offset shadow.
func framePolaroid(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	side := maxInt(minInt(w, h)*4/100, 10)
	bottom := side * 3

	frameW, frameH := w+side*2, h+side+bottom
	canvas := image.NewNRGBA(image.Rect(0, 0, frameW+6, frameH+6))
	fillRect(canvas, canvas.Bounds(), color.NRGBA{0xf0, 0xf0, 0xf0, 255})
	fillRect(canvas, image.Rect(6, 6, 6+frameW, 6+frameH), color.NRGBA{0xcc, 0xcc, 0xcc, 255})
	fillRect(canvas, image.Rect(0, 0, frameW, frameH), color.NRGBA{0xfa, 0xfa, 0xfa, 255})
	draw.Draw(canvas, image.Rect(side, side, side+w, side+h), img, img.Bounds().Min, draw.Src)
	return canvas
}

// frameRounded rounds the corners and flattens onto white.
func frameRounded(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	radius := maxInt(minInt(w, h)*5/100, 8)

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), float64(radius))
	dc.Clip()
	dc.DrawImage(img, 0, 0)

	return imaging.Clone(dc.Image())
}

// frameShadow: blurred offset dark rectangle under the image.
func frameShadow(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	offset := maxInt(minInt(w, h)*2/100, 5)
	padding := offset * 3

	canvas := image.NewNRGBA(image.Rect(0, 0, w+padding*2, h+padding*2))
	fillRect(canvas, canvas.Bounds(), color.NRGBA{0xf5, 0xf5, 0xf5, 255})
	fillRect(canvas, image.Rect(padding+offset, padding+offset, padding+offset+w, padding+offset+h),
		color.NRGBA{0x88, 0x88, 0x88, 255})
	blurred := imaging.Blur(canvas, float64(offset))
	draw.Draw(blurred, image.Rect(padding, padding, padding+w, padding+h), img, img.Bounds().Min, draw.Src)
	return blurred
}

func fillRect(dst *image.NRGBA, r image.Rectangle, col color.NRGBA) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
