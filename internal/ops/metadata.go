package ops

import (
	"context"
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"

	"gimg/internal/imgio"
)

func metadataSpec() *Spec {
	return &Spec{
		Name:    "metadata",
		Summary: "View or strip EXIF metadata",
		Suffix:  "clean",
		Params: []ParamDef{
			{Name: "strip", Kind: KindBool, Usage: "Strip all metadata", Default: false},
		},
		Run: runMetadata,
	}
}

func runMetadata(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !req.Values.Bool("strip") {
		tags, err := viewMetadata(req.InputPath)
		if err != nil {
			return nil, err
		}
		return &Result{Info: tags}, nil
	}

	// Strip mode: decoding and re-encoding through the standard codecs
	// drops every ancillary metadata segment.
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}
	if err := imgio.Save(req.OutputPath, img.Img, imgio.SaveOptions{}); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}

// viewMetadata flattens the EXIF tree into tag-name keyed strings. A file
// with no EXIF block yields an empty map, not an error.
func viewMetadata(path string) (map[string]any, error) {
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		if err == exif.ErrNoExif {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read exif: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("parse exif: %w", err)
	}

	tags := make(map[string]any, len(entries))
	for _, entry := range entries {
		value := entry.FormattedFirst
		if len(value) > 100 {
			value = fmt.Sprintf("<%d bytes>", len(value))
		}
		tags[entry.TagName] = value
	}
	return tags, nil
}
