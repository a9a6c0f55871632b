package ops

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/imgio"
)

// testEnv builds a processor environment with embedded fonts and probed
// capabilities. External tools are pointed at names that never exist, so
// the optional capabilities come back unavailable deterministically.
func testEnv(t *testing.T) *Env {
	t.Helper()
	fonts, err := LoadFonts("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	cfg := config.CapabilityConfig{
		CascadeFile:    "gimg-test-no-cascade.xml",
		RembgBin:       "gimg-test-missing-rembg",
		BrowserBin:     "gimg-test-missing-browser",
		BrowserTimeout: time.Second,
	}
	return &Env{
		Caps:   capability.Detect(cfg, nil),
		Fonts:  fonts,
		Cfg:    cfg,
		Logger: log.New(io.Discard, "", 0),
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(testEnv(t))
}

// writeGradientPNG writes a w x h image with distinct per-pixel colors so
// geometric operations are observable.
func writeGradientPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// runOp runs one operation end to end against a fresh gradient input and
// returns the result.
func runOp(t *testing.T, name string, w, h int, values Values, outExt string) (*Result, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "input.png")
	writeGradientPNG(t, in, w, h)

	if outExt == "" {
		outExt = ".png"
	}
	out := filepath.Join(dir, "output"+outExt)

	res, err := testRegistry(t).Run(t.Context(), name, &Request{
		InputPath:  in,
		OutputPath: out,
		Values:     values,
	})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return res, in
}

func outputDims(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imgio.Load(path)
	if err != nil {
		t.Fatalf("load output %s: %v", path, err)
	}
	return img.Width(), img.Height()
}
