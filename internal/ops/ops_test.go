package ops

import (
	"errors"
	"path/filepath"
	"testing"

	"gimg/internal/imgerr"
)

func TestRegistryHasAllOperations(t *testing.T) {
	want := []string{
		"compress", "resize", "crop", "rotate", "convert", "info", "metadata",
		"watermark", "blur-face", "remove-bg", "upscale", "meme", "edit",
		"html-to-img",
	}
	got := testRegistry(t).Names()
	if len(got) != len(want) {
		t.Fatalf("got %d operations, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operation %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunUnknownOperation(t *testing.T) {
	_, err := testRegistry(t).Run(t.Context(), "sparkle", &Request{})
	var validErr *imgerr.ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// Parameter validation must run before any file access: an out-of-range
// value on a nonexistent input still fails with the range error.
func TestRunValidatesBeforeProcessing(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.Run(t.Context(), "compress", &Request{
		InputPath:  filepath.Join(t.TempDir(), "does-not-exist.png"),
		OutputPath: filepath.Join(t.TempDir(), "out.png"),
		Values:     Values{"quality": 0},
	})
	var rangeErr *imgerr.ParameterRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected ParameterRangeError, got %v", err)
	}
	if rangeErr.Param != "quality" || rangeErr.Min != 1 || rangeErr.Max != 100 {
		t.Fatalf("range error fields wrong: %+v", rangeErr)
	}
}

func TestValidateValuesAppliesDefaults(t *testing.T) {
	reg := testRegistry(t)
	spec, _ := reg.Get("compress")

	v := Values{}
	if err := spec.ValidateValues(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Int("quality") != 80 {
		t.Fatalf("default quality = %d, want 80", v.Int("quality"))
	}
}

func TestValidateValuesRequired(t *testing.T) {
	reg := testRegistry(t)
	spec, _ := reg.Get("convert")

	err := spec.ValidateValues(Values{})
	var validErr *imgerr.ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError for missing 'to', got %v", err)
	}
}

func TestValidateValuesEnum(t *testing.T) {
	reg := testRegistry(t)
	spec, _ := reg.Get("watermark")

	err := spec.ValidateValues(Values{"text": "hi", "pos": "middle"})
	var validErr *imgerr.ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected ValidationError for bad pos, got %v", err)
	}
}

func TestValidateValuesFloatAcceptsInt(t *testing.T) {
	reg := testRegistry(t)
	spec, _ := reg.Get("resize")

	v := Values{"percentage": 50}
	if err := spec.ValidateValues(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Float("percentage") != 50.0 {
		t.Fatalf("percentage = %v, want 50.0", v["percentage"])
	}
}

func TestSpecOutputExt(t *testing.T) {
	reg := testRegistry(t)

	convert, _ := reg.Get("convert")
	if ext := convert.OutputExt(Values{"to": "webp"}); ext != ".webp" {
		t.Fatalf("convert ext = %q, want .webp", ext)
	}

	removeBG, _ := reg.Get("remove-bg")
	if ext := removeBG.OutputExt(Values{}); ext != ".png" {
		t.Fatalf("remove-bg ext = %q, want .png", ext)
	}

	resize, _ := reg.Get("resize")
	if ext := resize.OutputExt(Values{}); ext != "" {
		t.Fatalf("resize ext = %q, want empty", ext)
	}
}
