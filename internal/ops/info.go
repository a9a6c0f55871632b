package ops

import (
	"context"
	"fmt"
	"os"

	"gimg/internal/imgio"
)

func infoSpec() *Spec {
	return &Spec{
		Name:        "info",
		Summary:     "Show image info (dimensions, format, size, mode)",
		Suffix:      "info",
		InspectOnly: true,
		Run:         runInfo,
	}
}

func runInfo(ctx context.Context, _ *Env, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(req.InputPath)
	if err != nil {
		return nil, err
	}
	format, err := imgio.SniffFile(req.InputPath)
	if err != nil {
		return nil, err
	}
	img, err := imgio.Load(req.InputPath)
	if err != nil {
		return nil, err
	}

	return &Result{Info: map[string]any{
		"file":            req.InputPath,
		"format":          format.String(),
		"width":           img.Width(),
		"height":          img.Height(),
		"dimensions":      fmt.Sprintf("%d x %d", img.Width(), img.Height()),
		"mode":            img.Mode(),
		"file_size":       fi.Size(),
		"file_size_human": HumanSize(fi.Size()),
	}}, nil
}

// HumanSize renders a byte count the way people read them.
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}
