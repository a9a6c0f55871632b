//go:build gocv

package capability

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"gimg/internal/imgerr"
)

const faceDetectCompiled = true

// DetectFaces runs the Haar cascade over a grayscale copy of img and returns
// face bounding boxes ordered by descending area. Exact-area ties keep the
// detector's reporting order.
func (s *Set) DetectFaces(img image.Image) ([]image.Rectangle, error) {
	if err := s.Require(FaceDetect); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, &imgerr.ExternalToolError{Tool: "opencv", Err: err}
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	classifier := gocv.NewCascadeClassifier()
	defer classifier.Close()
	if !classifier.Load(s.cascadeFile) {
		return nil, &imgerr.ExternalToolError{
			Tool: "opencv",
			Err:  fmt.Errorf("load cascade %s", s.cascadeFile),
		}
	}

	faces := classifier.DetectMultiScaleWithParams(
		gray, 1.1, 5, 0,
		image.Pt(30, 30), image.Pt(0, 0),
	)

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Dx()*faces[i].Dy() > faces[j].Dx()*faces[j].Dy()
	})
	return faces, nil
}
