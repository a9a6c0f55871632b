package ops

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func rotateSpec() *Spec {
	return &Spec{
		Name:    "rotate",
		Summary: "Rotate images",
		Suffix:  "rotated",
		Params: []ParamDef{
			{Name: "degrees", Kind: KindFloat, Usage: "Rotation degrees (clockwise)", HasRange: true, Min: -360, Max: 360},
			{Name: "auto", Kind: KindBool, Usage: "Auto-orient from EXIF", Default: false},
		},
		Run: runRotate,
	}
}

func runRotate(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	var rotated image.Image
	switch {
	case req.Values.Bool("auto"):
		rotated = applyOrientation(img.Img, readOrientation(req.InputPath))
	case req.Values.Has("degrees"):
		// imaging rotates counter-clockwise for positive angles; the
		// operation's contract is clockwise.
		rotated = imaging.Rotate(img.Img, -req.Values.Float("degrees"), color.Transparent)
	default:
		return nil, &imgerr.ValidationError{Msg: "rotate requires degrees or auto"}
	}

	if err := imgio.Save(req.OutputPath, rotated, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}

// readOrientation extracts the EXIF orientation value, 1 (upright) when the
// file carries none.
func readOrientation(path string) int {
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		return 1
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}
	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if values, ok := entry.Value.([]uint16); ok && len(values) > 0 {
			return int(values[0])
		}
	}
	return 1
}

// applyOrientation undoes each of the eight EXIF orientation states.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
