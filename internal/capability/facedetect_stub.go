//go:build !gocv

package capability

import (
	"image"

	"gimg/internal/imgerr"
)

const faceDetectCompiled = false

// DetectFaces always fails in builds without the gocv tag.
func (s *Set) DetectFaces(_ image.Image) ([]image.Rectangle, error) {
	return nil, &imgerr.CapabilityUnavailableError{
		Capability: string(FaceDetect),
		Reason:     "build without the gocv tag (OpenCV required)",
	}
}
