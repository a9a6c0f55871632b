package ops

import (
	"context"

	"gimg/internal/imgio"
)

func compressSpec() *Spec {
	return &Spec{
		Name:    "compress",
		Summary: "Compress images (reduce file size)",
		Suffix:  "compressed",
		Params: []ParamDef{
			{Name: "quality", Kind: KindInt, Usage: "Quality 1-100", Default: 80, HasRange: true, Min: 1, Max: 100},
		},
		Run: runCompress,
	}
}

func runCompress(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}
	opts := imgio.SaveOptions{Quality: req.Values.Int("quality"), PNGBest: true}
	if err := imgio.Save(req.OutputPath, img.Img, opts); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}
