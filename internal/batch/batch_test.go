package batch

import (
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/imgerr"
	"gimg/internal/imgio"
	"gimg/internal/ops"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	fonts, err := ops.LoadFonts("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	cfg := config.CapabilityConfig{
		CascadeFile:    "none.xml",
		RembgBin:       "missing-rembg",
		BrowserBin:     "missing-browser",
		BrowserTimeout: time.Second,
	}
	logger := log.New(io.Discard, "", 0)
	registry := ops.NewRegistry(&ops.Env{
		Caps:   capability.Detect(cfg, nil),
		Fonts:  fonts,
		Cfg:    cfg,
		Logger: logger,
	})
	return NewRunner(registry, logger)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good1 := filepath.Join(dir, "a.png")
	bad := filepath.Join(dir, "b.png")
	good2 := filepath.Join(dir, "c.png")
	writePNG(t, good1)
	writePNG(t, good2)
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	summary, err := testRunner(t).Run(t.Context(), []string{good1, bad, good2}, Options{
		Operation: "compress",
		OutputArg: outDir,
		MaxBytes:  imgio.MaxFileSizeCLI,
		Values:    ops.Values{"quality": 60},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("got %d ok / %d failed, want 2/1", summary.Succeeded, summary.Failed)
	}
	if !summary.Partial() {
		t.Fatalf("summary should be partial")
	}

	// Results stay in submission order, and the failure carries its error.
	if summary.Items[0].Input != good1 || summary.Items[1].Input != bad || summary.Items[2].Input != good2 {
		t.Fatalf("order lost: %+v", summary.Items)
	}
	var formatErr *imgerr.UnsupportedFormatError
	if !errors.As(summary.Items[1].Err, &formatErr) {
		t.Fatalf("expected UnsupportedFormatError, got %v", summary.Items[1].Err)
	}

	for _, i := range []int{0, 2} {
		if _, err := os.Stat(summary.Items[i].OutputPath); err != nil {
			t.Fatalf("output missing for %s: %v", summary.Items[i].Input, err)
		}
	}
}

func TestRunProgressCallback(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a)
	writePNG(t, b)

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var calls []int
	_, err := testRunner(t).Run(t.Context(), []string{a, b}, Options{
		Operation: "compress",
		OutputArg: outDir,
		MaxBytes:  imgio.MaxFileSizeCLI,
		Progress: func(index, total int, _ Item) {
			if total != 2 {
				t.Fatalf("total = %d, want 2", total)
			}
			calls = append(calls, index)
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("progress calls = %v, want [1 2]", calls)
	}
}

func TestRunUnknownOperationIsFatal(t *testing.T) {
	_, err := testRunner(t).Run(t.Context(), []string{"x.png"}, Options{Operation: "nope"})
	if err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestRunSkipOutputForInspection(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.png")
	writePNG(t, in)

	summary, err := testRunner(t).Run(t.Context(), []string{in}, Options{
		Operation:  "info",
		MaxBytes:   imgio.MaxFileSizeCLI,
		SkipOutput: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	item := summary.Items[0]
	if item.Err != nil {
		t.Fatalf("info failed: %v", item.Err)
	}
	if item.OutputPath != "" {
		t.Fatalf("inspection should not produce a file, got %q", item.OutputPath)
	}
	if item.Info["format"] != "PNG" {
		t.Fatalf("info payload missing: %v", item.Info)
	}
}
