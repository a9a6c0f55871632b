package ops

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func cropSpec() *Spec {
	return &Spec{
		Name:    "crop",
		Summary: "Crop images",
		Suffix:  "cropped",
		Params: []ParamDef{
			{Name: "x", Kind: KindInt, Usage: "Left offset", Default: 0},
			{Name: "y", Kind: KindInt, Usage: "Top offset", Default: 0},
			{Name: "width", Kind: KindInt, Usage: "Crop width", HasRange: true, Min: 1, Max: 65536},
			{Name: "height", Kind: KindInt, Usage: "Crop height", HasRange: true, Min: 1, Max: 65536},
			{Name: "ratio", Kind: KindString, Usage: "Aspect ratio (e.g. 16:9)"},
		},
		Run: runCrop,
	}
}

// parseRatio parses "W:H" with float components.
func parseRatio(ratio string) (float64, error) {
	parts := strings.Split(ratio, ":")
	if len(parts) != 2 {
		return 0, &imgerr.ValidationError{Msg: fmt.Sprintf("invalid ratio format: %s (expected W:H, e.g. 16:9)", ratio)}
	}
	rw, err1 := strconv.ParseFloat(parts[0], 64)
	rh, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || rw <= 0 || rh <= 0 {
		return 0, &imgerr.ValidationError{Msg: fmt.Sprintf("invalid ratio format: %s (expected W:H, e.g. 16:9)", ratio)}
	}
	return rw / rh, nil
}

// cropBox computes the crop rectangle. Ratio crops are centered and trim
// only the dimension that exceeds the target shape; coordinate crops are
// clamped to the image bounds.
func cropBox(imgW, imgH int, v Values) (image.Rectangle, error) {
	if v.Str("ratio") != "" {
		target, err := parseRatio(v.Str("ratio"))
		if err != nil {
			return image.Rectangle{}, err
		}
		current := float64(imgW) / float64(imgH)

		var newW, newH int
		if current > target {
			newW = int(float64(imgH) * target)
			newH = imgH
		} else {
			newW = imgW
			newH = int(float64(imgW) / target)
		}
		cx := (imgW - newW) / 2
		cy := (imgH - newH) / 2
		return image.Rect(cx, cy, cx+newW, cy+newH), nil
	}

	if !v.Has("width") || !v.Has("height") {
		return image.Rectangle{}, &imgerr.ValidationError{Msg: "crop requires width and height, or ratio"}
	}
	x, y := v.Int("x"), v.Int("y")
	box := image.Rect(x, y, x+v.Int("width"), y+v.Int("height"))
	return box.Intersect(image.Rect(0, 0, imgW, imgH)), nil
}

func runCrop(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	box, err := cropBox(img.Width(), img.Height(), req.Values)
	if err != nil {
		return nil, err
	}
	cropped := imaging.Crop(img.Img, box)

	if err := imgio.Save(req.OutputPath, cropped, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}
