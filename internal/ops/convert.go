package ops

import (
	"context"

	"gimg/internal/imgio"
)

// ConvertFormats maps accepted target format names to output extensions.
var ConvertFormats = map[string]string{
	"jpg": ".jpg", "jpeg": ".jpeg", "png": ".png", "gif": ".gif",
	"webp": ".webp", "bmp": ".bmp", "tiff": ".tiff", "tif": ".tif",
}

func convertSpec() *Spec {
	return &Spec{
		Name:     "convert",
		Summary:  "Convert image format",
		Suffix:   "converted",
		OutExtFn: func(v Values) string { return ConvertFormats[v.Str("to")] },
		Params: []ParamDef{
			{
				Name: "to", Kind: KindString, Usage: "Target format", Required: true,
				Enum: []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "tif"},
			},
		},
		Run: runConvert,
	}
}

func runConvert(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	opts := imgio.SaveOptions{}
	switch req.Values.Str("to") {
	case "jpg", "jpeg":
		opts.Quality = 95
	case "webp":
		opts.Quality = 90
	}
	if err := imgio.Save(req.OutputPath, img.Img, opts); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}
