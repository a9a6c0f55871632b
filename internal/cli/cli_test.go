package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gimg/internal/batch"
	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/imgio"
	"gimg/internal/ops"
)

func testApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	fonts, err := ops.LoadFonts("")
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	capCfg := config.CapabilityConfig{
		CascadeFile:    "none.xml",
		RembgBin:       "missing-rembg",
		BrowserBin:     "missing-browser",
		BrowserTimeout: time.Second,
	}
	logger := log.New(io.Discard, "", 0)
	registry := ops.NewRegistry(&ops.Env{
		Caps:   capability.Detect(capCfg, nil),
		Fonts:  fonts,
		Cfg:    capCfg,
		Logger: logger,
	})

	var stdout, stderr bytes.Buffer
	app := &App{
		Registry: registry,
		Runner:   batch.NewRunner(registry, logger),
		Cfg: config.Config{
			Limits:       config.LimitsConfig{MaxFileBytes: imgio.MaxFileSizeCLI},
			Capabilities: capCfg,
		},
		Logger: logger,
		Stdout: &stdout,
		Stderr: &stderr,
	}
	return app, &stdout, &stderr
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func execute(t *testing.T, app *App, args ...string) int {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

func TestRootHasAllSubcommands(t *testing.T) {
	app, _, _ := testApp(t)
	root := NewRootCommand(app)

	for _, name := range app.Registry.Names() {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %s", name)
		}
	}
}

func TestResizeCommand(t *testing.T) {
	app, stdout, _ := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.png")
	writePNG(t, in, 20, 10)
	out := filepath.Join(dir, "small.png")

	code := execute(t, app, "resize", in, "--width", "10", "-o", out)
	if code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Saved: "+out) {
		t.Fatalf("missing saved line in %q", stdout.String())
	}

	img, err := imgio.Load(out)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if img.Width() != 10 || img.Height() != 5 {
		t.Fatalf("output %dx%d, want 10x5", img.Width(), img.Height())
	}
}

func TestDefaultOutputName(t *testing.T) {
	app, _, _ := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.png")
	writePNG(t, in, 20, 10)

	if code := execute(t, app, "compress", in); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "photo_compressed.png")); err != nil {
		t.Fatalf("default output missing: %v", err)
	}
}

func TestInfoCommandPrintsFields(t *testing.T) {
	app, stdout, _ := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.png")
	writePNG(t, in, 24, 12)

	if code := execute(t, app, "info", in); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	out := stdout.String()
	for _, want := range []string{"format", "PNG", "24 x 12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestBatchPartialFailureExitCode(t *testing.T) {
	app, _, _ := testApp(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "good.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	code := execute(t, app, "compress", dir, "-o", outDir)
	if code != 2 {
		t.Fatalf("exit code %d, want 2 for partial failure", code)
	}
}

func TestEmptyDirectoryExitCode(t *testing.T) {
	app, _, _ := testApp(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("no images"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code := execute(t, app, "compress", dir)
	if code != 1 {
		t.Fatalf("exit code %d, want 1 for a directory with no images", code)
	}
}

func TestMissingInputExitCode(t *testing.T) {
	app, _, _ := testApp(t)
	code := execute(t, app, "info", filepath.Join(t.TempDir(), "missing.png"))
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestConvertUsesTargetExtension(t *testing.T) {
	app, _, _ := testApp(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.png")
	writePNG(t, in, 8, 8)

	if code := execute(t, app, "convert", in, "--to", "bmp"); code != 0 {
		t.Fatalf("exit code %d, want 0", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "photo_converted.bmp")); err != nil {
		t.Fatalf("converted output missing: %v", err)
	}
}
