package ops

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"

	"gimg/internal/capability"
	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

func screenshotSpec() *Spec {
	return &Spec{
		Name:      "html-to-img",
		Summary:   "Screenshot a URL or HTML file",
		Suffix:    "screenshot",
		RawSource: true,
		Params: []ParamDef{
			{Name: "width", Kind: KindInt, Usage: "Viewport width", Default: 1280, HasRange: true, Min: 16, Max: 8192},
			{Name: "height", Kind: KindInt, Usage: "Viewport height", HasRange: true, Min: 16, Max: 8192},
			{Name: "full_page", Kind: KindBool, Usage: "Capture the full page height", Default: true},
			{Name: "format", Kind: KindString, Usage: "Output format", Default: "png", Enum: []string{"png", "jpg"}},
			{Name: "quality", Kind: KindInt, Usage: "JPEG quality", Default: 85, HasRange: true, Min: 1, Max: 100},
		},
		Run: runScreenshot,
	}
}

var unsafeHostChars = regexp.MustCompile(`[^\w.-]`)

// ScreenshotOutputName synthesizes the default output filename for a source
// that may be a URL rather than a local path.
func ScreenshotOutputName(source, format string) string {
	if fi, err := os.Stat(source); err == nil && fi.Mode().IsRegular() {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		return fmt.Sprintf("screenshot_%s.%s", stem, format)
	}
	host := "page"
	if u, err := url.Parse(source); err == nil && u.Hostname() != "" {
		host = unsafeHostChars.ReplaceAllString(u.Hostname(), "_")
	}
	return fmt.Sprintf("screenshot_%s.%s", host, format)
}

// sourceURL turns a local HTML file into a file:// URL and rejects every
// scheme except http and https for the rest.
func sourceURL(source string) (string, error) {
	if fi, err := os.Stat(source); err == nil && fi.Mode().IsRegular() {
		abs, err := filepath.Abs(source)
		if err != nil {
			return "", err
		}
		return "file://" + abs, nil
	}
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		scheme := ""
		if u != nil {
			scheme = u.Scheme
		}
		return "", &imgerr.ValidationError{
			Msg: fmt.Sprintf("unsupported URL scheme %q: only http:// and https:// allowed", scheme),
		}
	}
	return source, nil
}

func runScreenshot(ctx context.Context, env *Env, req *Request) (*Result, error) {
	if err := env.Caps.Require(capability.Browser); err != nil {
		return nil, err
	}

	target, err := sourceURL(req.InputPath)
	if err != nil {
		return nil, err
	}

	width := req.Values.Int("width")
	height := req.Values.Int("height")
	if height == 0 {
		height = 720
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(env.Caps.BrowserBin()),
		chromedp.WindowSize(width, height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Browser work gets a hard deadline; expiry is fatal for this item,
	// never retried here.
	runCtx, cancelRun := context.WithTimeout(browserCtx, env.Cfg.BrowserTimeout)
	defer cancelRun()

	quality := 100
	if req.Values.Str("format") == "jpg" {
		quality = req.Values.Int("quality")
	}

	var shot []byte
	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(target),
	}
	fullPage := req.Values.Bool("full_page")
	if fullPage {
		actions = append(actions, chromedp.FullScreenshot(&shot, quality))
	} else {
		actions = append(actions, chromedp.CaptureScreenshot(&shot))
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, &imgerr.ExternalToolError{Tool: "browser", Err: err}
	}

	// Viewport captures always come back as PNG; transcode when the caller
	// asked for JPEG.
	if !fullPage && req.Values.Str("format") == "jpg" {
		img, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			return nil, &imgerr.ExternalToolError{Tool: "browser", Err: err}
		}
		if err := imgio.Save(req.OutputPath, img, imgio.SaveOptions{Quality: req.Values.Int("quality")}); err != nil {
			return nil, err
		}
		return &Result{OutputPath: req.OutputPath}, nil
	}

	if err := os.WriteFile(req.OutputPath, shot, 0o644); err != nil {
		return nil, err
	}
	return &Result{OutputPath: req.OutputPath}, nil
}
