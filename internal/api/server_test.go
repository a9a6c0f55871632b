package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/ops"
	"gimg/internal/ratelimit"
)

func newTestServer(t *testing.T, maxUpload int64, limiter ratelimit.Limiter) *Server {
	t.Helper()
	return newTracedTestServer(t, maxUpload, limiter, nil)
}

func newTracedTestServer(t *testing.T, maxUpload int64, limiter ratelimit.Limiter, tracer trace.Tracer) *Server {
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
	caps := capability.Detect(cfg, nil)
	return NewServer(logger, registry, caps, limiter, tracer, maxUpload, t.TempDir())
}

// multipartUpload builds a request body with one file part and optional
// extra form fields.
func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var body struct {
		Status       string          `json:"status"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status = %q, want ok", body.Status)
	}
	if len(body.Capabilities) == 0 {
		t.Fatalf("capability report missing")
	}
}

func TestToolsEndpoint(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var body struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tools) != 14 {
		t.Fatalf("got %d tools, want 14", len(body.Tools))
	}
	if body.Tools[0].Name != "compress" {
		t.Fatalf("first tool = %q, want compress", body.Tools[0].Name)
	}
}

func TestUnknownOperation(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "a.png", pngBytes(t, 4, 4), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/sparkle", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestScreenshotNotOverHTTP(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "a.png", pngBytes(t, 4, 4), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/html-to-img", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status %d, want 501", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, 64, nil)
	body, contentType := multipartUpload(t, "big.png", pngBytes(t, 64, 64), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
}

func TestUploadUnsupportedContent(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "fake.jpg", []byte("plain text, not pixels"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d, want 415", rec.Code)
	}
}

func TestMissingFileField(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("quality", "50"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/compress", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestParameterOutOfRange(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "a.png", pngBytes(t, 4, 4), map[string]string{"quality": "0"})
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestCompressHappyPath(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "photo.png", pngBytes(t, 16, 16), map[string]string{"quality": "60"})
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q, want image/png", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="photo_compressed.png"` {
		t.Fatalf("content disposition %q", cd)
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}
}

func TestUploadWithoutExtension(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "photo", pngBytes(t, 16, 16), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="photo_compressed.png"` {
		t.Fatalf("content disposition %q", cd)
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}
}

func TestInfoReturnsJSON(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "photo.png", pngBytes(t, 10, 20), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/info", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	var info map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["format"] != "PNG" {
		t.Fatalf("format = %v, want PNG", info["format"])
	}
	if info["width"].(float64) != 10 || info["height"].(float64) != 20 {
		t.Fatalf("dimensions wrong: %v", info)
	}
}

func TestRateLimitRejects(t *testing.T) {
	limiter, err := ratelimit.NewMemoryTokenBucket(1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	srv := newTestServer(t, 1<<20, limiter)

	send := func() *httptest.ResponseRecorder {
		body, contentType := multipartUpload(t, "a.png", pngBytes(t, 4, 4), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "192.0.2.7:1234"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d, want 200", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}

	// Health stays unthrottled.
	health := httptest.NewRecorder()
	srv.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health throttled: %d", health.Code)
	}
}

func TestTracingTagsOperation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	srv := newTracedTestServer(t, 1<<20, nil, tp.Tracer("test"))

	body, contentType := multipartUpload(t, "photo.png", pngBytes(t, 8, 8), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	found := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "gimg.operation" && attr.Value.AsString() == "compress" {
			found = true
		}
	}
	if !found {
		t.Fatalf("span lacks the operation attribute: %v", spans[0].Attributes())
	}
}

func TestRemoveBGUnavailableReturns501(t *testing.T) {
	srv := newTestServer(t, 1<<20, nil)
	body, contentType := multipartUpload(t, "a.png", pngBytes(t, 4, 4), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/remove-bg", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status %d, want 501", rec.Code)
	}
}
