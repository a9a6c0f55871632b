package ops

import (
	"context"

	"github.com/disintegration/imaging"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func resizeSpec() *Spec {
	return &Spec{
		Name:    "resize",
		Summary: "Resize images",
		Suffix:  "resized",
		Params: []ParamDef{
			{Name: "width", Kind: KindInt, Usage: "Target width in pixels", HasRange: true, Min: 1, Max: 65536},
			{Name: "height", Kind: KindInt, Usage: "Target height in pixels", HasRange: true, Min: 1, Max: 65536},
			{Name: "percentage", Kind: KindFloat, Usage: "Scale by percentage", HasRange: true, Min: 0.1, Max: 1000},
			{Name: "max_size", Kind: KindInt, Usage: "Fit within max dimension", HasRange: true, Min: 1, Max: 65536},
		},
		Run: runResize,
	}
}

// resizeDims computes the target dimensions. Percentage and max_size each
// take precedence over explicit width/height; max_size never upscales.
func resizeDims(origW, origH int, v Values) (int, int, error) {
	switch {
	case v.Has("percentage"):
		pct := v.Float("percentage")
		return int(float64(origW) * pct / 100), int(float64(origH) * pct / 100), nil
	case v.Has("max_size"):
		maxSize := v.Int("max_size")
		ratio := float64(maxSize) / float64(origW)
		if r := float64(maxSize) / float64(origH); r < ratio {
			ratio = r
		}
		if ratio >= 1 {
			return origW, origH, nil
		}
		return int(float64(origW) * ratio), int(float64(origH) * ratio), nil
	case v.Has("width") && v.Has("height"):
		return v.Int("width"), v.Int("height"), nil
	case v.Has("width"):
		w := v.Int("width")
		return w, int(float64(origH) * float64(w) / float64(origW)), nil
	case v.Has("height"):
		h := v.Int("height")
		return int(float64(origW) * float64(h) / float64(origH)), h, nil
	default:
		return 0, 0, &imgerr.ValidationError{Msg: "resize requires width, height, percentage, or max_size"}
	}
}

func runResize(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	w, h, err := resizeDims(img.Width(), img.Height(), req.Values)
	if err != nil {
		return nil, err
	}
	resized := imaging.Resize(img.Img, w, h, imaging.Lanczos)

	if err := imgio.Save(req.OutputPath, resized, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}
