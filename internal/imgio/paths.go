package imgio

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gimg/internal/imgerr"
)

// Extensions the input resolver picks up when scanning a directory.
var readExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp",
	".tiff", ".tif", ".heic", ".heif", ".svg",
}

// DefaultOutput synthesizes `{stem}_{suffix}{ext}` beside the input. An
// empty ext keeps the input's extension.
func DefaultOutput(inputPath, suffix, ext string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	inExt := filepath.Ext(base)
	stem := strings.TrimSuffix(base, inExt)

	extension := inExt
	if ext != "" {
		extension = ext
		if !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
	}
	return filepath.Join(dir, stem+"_"+suffix+extension)
}

// ResolveOutput decides where one processed image goes. An explicit output
// naming an existing directory gets the synthesized filename joined onto it;
// an explicit file path is used verbatim; otherwise the default is placed
// beside the input. Writing over the input always requires the overwrite
// flag.
func ResolveOutput(inputPath, outputArg, suffix, ext string, overwrite bool) (string, error) {
	out := ""
	if outputArg != "" {
		if fi, err := os.Stat(outputArg); err == nil && fi.IsDir() {
			name := filepath.Base(DefaultOutput(inputPath, suffix, ext))
			return filepath.Join(outputArg, name), nil
		}
		out = outputArg
	} else {
		out = DefaultOutput(inputPath, suffix, ext)
	}

	if !overwrite {
		if same, err := samePath(out, inputPath); err == nil && same {
			return "", &imgerr.OverwriteError{Path: inputPath}
		}
	}
	return out, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// EnsureParent creates the resolved output's parent directories.
func EnsureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// ResolveInputs expands a single file, a directory (supported image
// extensions only), or a glob pattern into an ordered path list.
func ResolveInputs(arg string) ([]string, error) {
	if fi, err := os.Stat(arg); err == nil {
		if fi.Mode().IsRegular() {
			return []string{arg}, nil
		}
		if fi.IsDir() {
			seen := map[string]struct{}{}
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if !entry.Type().IsRegular() {
					continue
				}
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				for _, supported := range readExtensions {
					if ext == supported {
						seen[filepath.Join(arg, entry.Name())] = struct{}{}
						break
					}
				}
			}
			if len(seen) == 0 {
				return nil, &imgerr.NotFoundError{Path: arg}
			}
			files := make([]string, 0, len(seen))
			for f := range seen {
				files = append(files, f)
			}
			sort.Strings(files)
			return files, nil
		}
	}

	matches, err := filepath.Glob(arg)
	if err != nil {
		return nil, &imgerr.ValidationError{Msg: "invalid input pattern: " + arg}
	}
	var files []string
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, &imgerr.NotFoundError{Path: arg}
	}
	sort.Strings(files)
	return files, nil
}
