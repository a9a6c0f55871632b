// Package api is the HTTP adapter over the operation registry: one POST
// route per operation, multipart upload in, processed image (or JSON for
// inspection operations) out.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"gimg/internal/capability"
	"gimg/internal/id"
	"gimg/internal/imgerr"
	"gimg/internal/imgio"
	"gimg/internal/ops"
	"gimg/internal/ratelimit"
)

type Server struct {
	logger      *log.Logger
	registry    *ops.Registry
	caps        *capability.Set
	rateLimiter ratelimit.Limiter
	metrics     *metrics
	tracer      trace.Tracer
	maxUpload   int64
	tempDir     string
	mux         *http.ServeMux
}

func NewServer(logger *log.Logger, registry *ops.Registry, caps *capability.Set, limiter ratelimit.Limiter, tracer trace.Tracer, maxUpload int64, tempDir string) *Server {
	if maxUpload <= 0 {
		maxUpload = 20 * 1024 * 1024
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	s := &Server{
		logger:      logger,
		registry:    registry,
		caps:        caps,
		rateLimiter: limiter,
		metrics:     newMetrics(),
		tracer:      tracer,
		maxUpload:   maxUpload,
		tempDir:     tempDir,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.withRateLimit(h)
	h = s.withTracing(h)
	h = s.metrics.withHTTPMetrics(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("POST /api/{op}", s.handleOperation)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"capabilities": s.caps.Report(),
	})
}

// handleTools exposes the operation schemas so clients can discover
// parameters without consulting documentation.
func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	tools := make([]map[string]any, 0, len(s.registry.Names()))
	for _, name := range s.registry.Names() {
		spec, _ := s.registry.Get(name)
		params := make([]map[string]any, 0, len(spec.Params))
		for _, p := range spec.Params {
			entry := map[string]any{
				"name":     p.Name,
				"type":     kindLabel(p.Kind),
				"usage":    p.Usage,
				"required": p.Required,
			}
			if p.Default != nil {
				entry["default"] = p.Default
			}
			if p.HasRange {
				entry["min"] = p.Min
				entry["max"] = p.Max
			}
			if len(p.Enum) > 0 {
				entry["enum"] = p.Enum
			}
			params = append(params, entry)
		}
		tools = append(tools, map[string]any{
			"name":    spec.Name,
			"summary": spec.Summary,
			"params":  params,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	opName := r.PathValue("op")
	spec, ok := s.registry.Get(opName)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown operation: " + opName})
		return
	}

	// Screenshot capture drives a headless browser against arbitrary URLs,
	// which is not something the shared HTTP surface offers.
	if spec.RawSource {
		writeJSON(w, http.StatusNotImplemented, map[string]string{
			"error": opName + " is only available through the command line",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds the %d byte limit", s.maxUpload),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	inputPath, err := s.spoolUpload(file, header.Filename)
	if err != nil {
		s.logger.Printf("spool upload failed for op=%s: %v", opName, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}
	defer os.Remove(inputPath)

	if err := imgio.Validate(inputPath, s.maxUpload); err != nil {
		s.writeError(w, opName, err)
		return
	}

	values, err := formValues(spec, r.MultipartForm.Value)
	if err != nil {
		s.writeError(w, opName, err)
		return
	}

	var outputPath string
	if !spec.InspectOnly {
		outputPath = s.tempOutputPath(inputPath, spec, values)
		defer os.Remove(outputPath)
	}

	res, err := s.registry.Run(r.Context(), opName, &ops.Request{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Values:     values,
	})
	if err != nil {
		s.writeError(w, opName, err)
		return
	}
	s.metrics.operationsTotal.WithLabelValues(opName, "ok").Inc()

	// metadata without strip=true also ends here: inspection produced a
	// payload instead of a file.
	if spec.InspectOnly || res.OutputPath == "" {
		if _, ok := res.Info["file"]; ok {
			// The payload must name the upload, not the spool file.
			res.Info["file"] = header.Filename
		}
		writeJSON(w, http.StatusOK, res.Info)
		return
	}
	s.serveFile(w, res.OutputPath, header.Filename, spec, res.Warning)
}

// spoolUpload copies the multipart part to a temp file, preserving the
// extension so the processors can pick output encoders from it.
func (s *Server) spoolUpload(file multipart.File, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp(s.tempDir, "gimg-upload-"+id.New()+"-*"+ext)
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (s *Server) tempOutputPath(inputPath string, spec *ops.Spec, values ops.Values) string {
	ext := filepath.Ext(inputPath)
	if ext == "" {
		// Extension-less uploads still carry a sniffable format; fall back
		// to PNG only when even the content gives nothing usable.
		if format, err := imgio.SniffFile(inputPath); err == nil {
			ext = format.Ext()
		}
		if ext == "" {
			ext = ".png"
		}
	}
	if forced := spec.OutputExt(values); forced != "" {
		ext = forced
	}
	return filepath.Join(s.tempDir, "gimg-out-"+id.New()+ext)
}

func (s *Server) serveFile(w http.ResponseWriter, path, originalName string, spec *ops.Spec, warning string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Printf("open result failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read result"})
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.logger.Printf("stat result failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read result"})
		return
	}

	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	downloadName := stem + "_" + spec.Suffix + filepath.Ext(path)

	w.Header().Set("Content-Type", contentTypeFor(filepath.Ext(path)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", fi.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	if warning != "" {
		w.Header().Set("X-Gimg-Warning", warning)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

// writeError maps typed processing errors onto HTTP statuses. Internal
// filesystem paths never leak into response bodies.
func (s *Server) writeError(w http.ResponseWriter, opName string, err error) {
	s.metrics.operationsTotal.WithLabelValues(opName, "error").Inc()

	var (
		rangeErr  *imgerr.ParameterRangeError
		validErr  *imgerr.ValidationError
		formatErr *imgerr.UnsupportedFormatError
		sizeErr   *imgerr.SizeLimitError
		capErr    *imgerr.CapabilityUnavailableError
		toolErr   *imgerr.ExternalToolError
	)
	switch {
	case errors.As(err, &rangeErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": rangeErr.Error()})
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validErr.Error()})
	case errors.As(err, &formatErr):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "unsupported image format"})
	case errors.As(err, &sizeErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("upload exceeds the %d byte limit", sizeErr.Limit),
		})
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": capErr.Error()})
	case errors.As(err, &toolErr):
		s.logger.Printf("external tool failed for op=%s: %v", opName, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": toolErr.Tool + " processing failed"})
	default:
		s.logger.Printf("operation %s failed: %v", opName, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
	}
}

// formValues parses multipart form fields against the operation schema.
// Unknown fields are ignored so clients can send extra metadata.
func formValues(spec *ops.Spec, form map[string][]string) (ops.Values, error) {
	values := ops.Values{}
	for name, fieldValues := range form {
		def, ok := spec.Param(name)
		if !ok || len(fieldValues) == 0 {
			continue
		}
		parsed, err := def.Parse(fieldValues[0])
		if err != nil {
			return nil, err
		}
		values[name] = parsed
	}
	return values, nil
}

func kindLabel(k ops.Kind) string {
	switch k {
	case ops.KindInt:
		return "int"
	case ops.KindFloat:
		return "float"
	case ops.KindBool:
		return "bool"
	default:
		return "string"
	}
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
