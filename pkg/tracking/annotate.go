package tracking

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	colorBand     = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	colorCentroid = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorFused    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorFallback = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	colorText     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Annotate draws the band outlines, the per-band centroids, the fused
// position and the steering command onto frame.
func Annotate(frame *gocv.Mat, obs []Observation, tel Telemetry) {
	w, h := frame.Cols(), frame.Rows()

	for _, o := range obs {
		gocv.Rectangle(frame, o.Band.Rect(w, h), colorBand, 1)
		if o.Found {
			gocv.Circle(frame, image.Pt(o.X(), o.Band.Center), 5, colorCentroid, -1)
		}
	}

	fused := colorFused
	if tel.Fused.Source == SourceFallback {
		fused = colorFallback
	}
	x := int(tel.Smoothed)
	gocv.Line(frame, image.Pt(x, h-30), image.Pt(x, h), fused, 2)
	gocv.Line(frame, image.Pt(w/2, h-10), image.Pt(w/2, h), colorText, 1)

	label := fmt.Sprintf("steer %+d  x %d  %s", tel.Steering, tel.Fused.X, tel.Fused.Source)
	if tel.Link != LinkConnected {
		label += "  link down"
	}
	gocv.PutText(frame, label, image.Pt(10, 20), gocv.FontHersheySimplex, 0.5, colorText, 1)
}

// EncodeJPEG compresses frame at the given quality (1-100).
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}
