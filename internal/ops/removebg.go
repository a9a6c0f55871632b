package ops

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gimg/internal/capability"
	"gimg/internal/imgerr"
)

func removeBGSpec() *Spec {
	return &Spec{
		Name:    "remove-bg",
		Summary: "Remove image background (AI)",
		Suffix:  "nobg",
		OutExt:  ".png", // transparency needs an alpha-capable container
		Params: []ParamDef{
			{
				Name: "model", Kind: KindString, Usage: "Segmentation model", Default: "u2net",
				Enum: []string{"u2net", "u2netp", "isnet-general-use"},
			},
			{Name: "alpha_matting", Kind: KindBool, Usage: "Use alpha matting for cleaner edges", Default: false},
		},
		Run: runRemoveBG,
	}
}

// runRemoveBG wraps the rembg command:
//
//	rembg i -m <model> [-a] src dst
//
// The output path is always PNG; the front ends force the extension before
// the request reaches this processor.
func runRemoveBG(ctx context.Context, env *Env, req *Request) (*Result, error) {
	if err := env.Caps.Require(capability.RemoveBG); err != nil {
		return nil, err
	}

	out := req.OutputPath
	if !strings.EqualFold(filepath.Ext(out), ".png") {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ".png"
	}

	args := []string{"i", "-m", req.Values.Str("model")}
	if req.Values.Bool("alpha_matting") {
		args = append(args, "-a")
	}
	args = append(args, req.InputPath, out)

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(runCtx, env.Caps.RembgBin(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, &imgerr.ExternalToolError{Tool: "rembg", Err: &toolOutputError{detail}}
		}
		return nil, &imgerr.ExternalToolError{Tool: "rembg", Err: err}
	}
	return &Result{OutputPath: out}, nil
}

type toolOutputError struct {
	detail string
}

func (e *toolOutputError) Error() string { return e.detail }
