package ops

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"gimg/internal/capability"
	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func blurFaceSpec() *Spec {
	return &Spec{
		Name:    "blur-face",
		Summary: "Detect and blur faces",
		Suffix:  "blurred",
		Params: []ParamDef{
			{Name: "strength", Kind: KindInt, Usage: "Blur strength", Default: 25, HasRange: true, Min: 3, Max: 151},
			{Name: "largest", Kind: KindBool, Usage: "Blur only the largest face", Default: false},
			{Name: "region", Kind: KindString, Usage: "Manual region x,y,w,h (skip face detection)"},
		},
		Run: runBlurFace,
	}
}

func runBlurFace(ctx context.Context, env *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}
	img := imaging.Clone(src.Img)

	ksize := req.Values.Int("strength")
	if ksize < 3 {
		ksize = 3
	}
	if ksize%2 == 0 {
		ksize++
	}
	sigma := float64(ksize) / 3

	warning := ""
	if region := req.Values.Str("region"); region != "" {
		rect, err := parseRegion(region)
		if err != nil {
			return nil, err
		}
		blurRegion(img, rect, sigma)
	} else {
		if err := env.Caps.Require(capability.FaceDetect); err != nil {
			return nil, err
		}
		faces, err := env.Caps.DetectFaces(img)
		if err != nil {
			return nil, err
		}
		switch {
		case len(faces) == 0:
			warning = "no faces detected, saving unchanged"
		case req.Values.Bool("largest"):
			// DetectFaces orders by descending area; ties keep detector order.
			blurRegion(img, faces[0], sigma)
		default:
			for _, face := range faces {
				blurRegion(img, face, sigma)
			}
		}
	}

	if err := imgio.Save(req.OutputPath, img, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath, Warning: warning}, nil
}

func parseRegion(region string) (image.Rectangle, error) {
	parts := strings.Split(region, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, &imgerr.ValidationError{Msg: "region must be x,y,w,h (e.g. 100,100,200,200)"}
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, &imgerr.ValidationError{Msg: fmt.Sprintf("region component %q is not an integer", p)}
		}
		vals[i] = v
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), nil
}

// blurRegion gaussian-blurs one rectangle of img in place.
func blurRegion(img *image.NRGBA, rect image.Rectangle, sigma float64) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	blurred := imaging.Blur(imaging.Crop(img, rect), sigma)
	draw.Draw(img, rect, blurred, image.Point{}, draw.Src)
}
