package imgio

import (
	"errors"
	"os"

	"gimg/internal/imgerr"
)

const (
	// MaxFileSizeCLI is the ceiling for trusted local files.
	MaxFileSizeCLI = 50 * 1024 * 1024
	// MaxFileSizeHTTP is the stricter ceiling for untrusted uploads.
	MaxFileSizeHTTP = 20 * 1024 * 1024
)

// Validate runs the four pre-decode checks in order: existence, regular
// file, size ceiling, recognizable format. It must run before any decode so
// hostile input never reaches a codec.
func Validate(path string, maxSize int64) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &imgerr.NotFoundError{Path: path}
		}
		return err
	}
	if !fi.Mode().IsRegular() {
		return &imgerr.WrongTypeError{Path: path}
	}
	if fi.Size() > maxSize {
		return &imgerr.SizeLimitError{Path: path, Size: fi.Size(), Limit: maxSize}
	}

	format, err := SniffFile(path)
	if err != nil {
		return err
	}
	if format == FormatUnknown {
		return &imgerr.UnsupportedFormatError{Path: path}
	}
	return nil
}
