// Package capability probes the optional external dependencies once at
// startup and answers availability questions for the processors, so call
// sites never catch-and-continue around a missing library.
package capability

import (
	"log"
	"os"
	"os/exec"

	"gimg/internal/config"
	"gimg/internal/imgerr"
	"gimg/internal/imgio"
)

type Capability string

const (
	HEICDecode Capability = "HEIC decode"
	SVGRender  Capability = "SVG rasterization"
	FaceDetect Capability = "face detection"
	RemoveBG   Capability = "background removal"
	Browser    Capability = "browser rendering"
)

// Status is either Available or Unavailable with a reason.
type Status struct {
	Available bool
	Reason    string
}

// Set holds the probed capability statuses plus the handles (paths) the
// available ones need.
type Set struct {
	statuses    map[Capability]Status
	cascadeFile string
	rembgBin    string
	browserBin  string
}

var browserCandidates = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser",
	"headless-shell", "chrome",
}

// Detect probes every optional capability exactly once.
func Detect(cfg config.CapabilityConfig, logger *log.Logger) *Set {
	s := &Set{statuses: map[Capability]Status{}}

	exotic := Status{Available: imgio.ExoticDecodeAvailable}
	if !exotic.Available {
		exotic.Reason = "build without the vips tag (libvips required)"
	}
	s.statuses[HEICDecode] = exotic
	s.statuses[SVGRender] = exotic

	s.statuses[FaceDetect] = s.probeFaceDetect(cfg.CascadeFile)

	if bin, err := exec.LookPath(cfg.RembgBin); err == nil {
		s.rembgBin = bin
		s.statuses[RemoveBG] = Status{Available: true}
	} else {
		s.statuses[RemoveBG] = Status{Reason: cfg.RembgBin + " binary not found in PATH"}
	}

	s.statuses[Browser] = s.probeBrowser(cfg.BrowserBin)

	if logger != nil {
		for _, c := range []Capability{HEICDecode, SVGRender, FaceDetect, RemoveBG, Browser} {
			st := s.statuses[c]
			if st.Available {
				logger.Printf("capability %s: available", c)
			} else {
				logger.Printf("capability %s: unavailable (%s)", c, st.Reason)
			}
		}
	}
	return s
}

func (s *Set) probeFaceDetect(cascadeFile string) Status {
	if !faceDetectCompiled {
		return Status{Reason: "build without the gocv tag (OpenCV required)"}
	}
	path, ok := findCascade(cascadeFile)
	if !ok {
		return Status{Reason: "cascade file not found: " + cascadeFile}
	}
	s.cascadeFile = path
	return Status{Available: true}
}

func (s *Set) probeBrowser(configured string) Status {
	candidates := browserCandidates
	if configured != "" {
		candidates = []string{configured}
	}
	for _, c := range candidates {
		if bin, err := exec.LookPath(c); err == nil {
			s.browserBin = bin
			return Status{Available: true}
		}
	}
	return Status{Reason: "no Chrome/Chromium binary found in PATH"}
}

// cascadeSearchDirs are the usual OpenCV data locations tried when the
// configured cascade path is not absolute.
var cascadeSearchDirs = []string{
	"",
	"/usr/share/opencv4/haarcascades/",
	"/usr/local/share/opencv4/haarcascades/",
	"/usr/share/opencv/haarcascades/",
}

func findCascade(name string) (string, bool) {
	for _, dir := range cascadeSearchDirs {
		p := dir + name
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// Status reports the probed state of one capability.
func (s *Set) Status(c Capability) Status {
	return s.statuses[c]
}

// Require returns a CapabilityUnavailableError when c was probed absent.
func (s *Set) Require(c Capability) error {
	st := s.statuses[c]
	if st.Available {
		return nil
	}
	return &imgerr.CapabilityUnavailableError{Capability: string(c), Reason: st.Reason}
}

// Report returns availability keyed by capability name, for health output.
func (s *Set) Report() map[string]bool {
	out := make(map[string]bool, len(s.statuses))
	for c, st := range s.statuses {
		out[string(c)] = st.Available
	}
	return out
}

// RembgBin returns the resolved rembg binary path.
func (s *Set) RembgBin() string { return s.rembgBin }

// BrowserBin returns the resolved browser binary path.
func (s *Set) BrowserBin() string { return s.browserBin }
