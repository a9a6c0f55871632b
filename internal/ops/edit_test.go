package ops

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func TestEditRequiresSomething(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writeGradientPNG(t, in, 10, 10)

	_, err := testRegistry(t).Run(t.Context(), "edit", &Request{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "out.png"),
		Values:     Values{},
	})
	var validErr *imgerr.ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEditThumbnailIsSquare(t *testing.T) {
	res, _ := runOp(t, "edit", 200, 100, Values{"thumbnail": 32}, "")
	w, h := outputDims(t, res.OutputPath)
	if w != 32 || h != 32 {
		t.Fatalf("output %dx%d, want 32x32", w, h)
	}
}

func TestEditBorderGrowsCanvas(t *testing.T) {
	res, _ := runOp(t, "edit", 100, 50, Values{"border": 10, "border_color": "red"}, "")
	out, err := imgio.Load(res.OutputPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Width() != 120 || out.Height() != 70 {
		t.Fatalf("output %dx%d, want 120x70", out.Width(), out.Height())
	}
	r, g, b, _ := out.Img.At(0, 0).RGBA()
	if r>>8 < 250 || g>>8 > 5 || b>>8 > 5 {
		t.Fatalf("corner not red: r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

// A border requested together with a thumbnail must survive the crop, so
// the pipeline applies the thumbnail last.
func TestEditThumbnailAfterBorder(t *testing.T) {
	res, _ := runOp(t, "edit", 200, 100, Values{
		"border":       20,
		"border_color": "black",
		"thumbnail":    64,
	}, "")
	out, err := imgio.Load(res.OutputPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Width() != 64 || out.Height() != 64 {
		t.Fatalf("output %dx%d, want 64x64", out.Width(), out.Height())
	}
}

func TestEditRejectsUnknownFrame(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writeGradientPNG(t, in, 10, 10)

	_, err := testRegistry(t).Run(t.Context(), "edit", &Request{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "out.png"),
		Values:     Values{"frame": "baroque"},
	})
	var validErr *imgerr.ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEditFlipHorizontal(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writeGradientPNG(t, in, 16, 8)
	src, err := imgio.Load(in)
	if err != nil {
		t.Fatalf("load input: %v", err)
	}

	out := filepath.Join(dir, "out.png")
	if _, err := testRegistry(t).Run(t.Context(), "edit", &Request{
		InputPath:  in,
		OutputPath: out,
		Values:     Values{"flip": "horizontal"},
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	flipped, err := imgio.Load(out)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	want := color.NRGBAModel.Convert(src.Img.At(0, 3))
	got := color.NRGBAModel.Convert(flipped.Img.At(15, 3))
	if want != got {
		t.Fatalf("pixel (0,3) should move to (15,3): want %v, got %v", want, got)
	}
}

func TestAddBorderDimensions(t *testing.T) {
	img := solidNRGBA(10, 10, color.NRGBA{1, 2, 3, 255})
	out := addBorder(img, 5, color.NRGBA{255, 255, 255, 255})
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 20 {
		t.Fatalf("got %v, want 20x20", out.Bounds())
	}
	if out.NRGBAAt(7, 7) != (color.NRGBA{1, 2, 3, 255}) {
		t.Fatalf("inner pixel lost: %v", out.NRGBAAt(7, 7))
	}
}
