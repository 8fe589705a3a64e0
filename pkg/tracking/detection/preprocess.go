package detection

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Pipeline step operations.
const (
	OpEqualize  = "equalize"  // Histogram equalization
	OpOpen      = "open"      // Morphological opening with a Width x Height rectangle
	OpBlur      = "blur"      // Gaussian blur with a Size x Size kernel
	OpThreshold = "threshold" // Binarize at Cutoff (Inverse keeps pixels <= Cutoff)
	OpRange     = "range"     // Binarize keeping pixels in [Low, High]
)

// Channel selections for a pipeline.
const (
	ChannelsAll  = "all"
	ChannelBlue  = "blue"
	ChannelGreen = "green"
	ChannelRed   = "red"
)

// ErrEmptyBand is returned when a band does not intersect the frame.
var ErrEmptyBand = errors.New("detection: band outside frame")

// Step is one stage of a preprocessing pipeline
type Step struct {
	Op      string  `yaml:"op" json:"op"`
	Width   int     `yaml:"width,omitempty" json:"width,omitempty"`
	Height  int     `yaml:"height,omitempty" json:"height,omitempty"`
	Size    int     `yaml:"size,omitempty" json:"size,omitempty"`
	Cutoff  float64 `yaml:"cutoff,omitempty" json:"cutoff,omitempty"`
	Inverse bool    `yaml:"inverse,omitempty" json:"inverse,omitempty"`
	Low     float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High    float64 `yaml:"high,omitempty" json:"high,omitempty"`
}

// Pipeline describes how a band is turned into a binary mask.
// With ChannelsAll every channel runs the steps on its own and the
// resulting masks are OR-ed together.
type Pipeline struct {
	Channels string `yaml:"channels" json:"channels"`
	Steps    []Step `yaml:"steps" json:"steps"`
}

// ContrastPipeline equalizes and cleans every channel, then keeps the
// darkest pixels. Pairs with the weighted scorer.
func ContrastPipeline() Pipeline {
	return Pipeline{
		Channels: ChannelsAll,
		Steps: []Step{
			{Op: OpEqualize},
			{Op: OpOpen, Width: 30, Height: 10},
			{Op: OpOpen, Width: 10, Height: 30},
			{Op: OpBlur, Size: 21},
			{Op: OpThreshold, Cutoff: 0, Inverse: true},
		},
	}
}

// GreenRangePipeline works on the green channel only and keeps pixels up to
// high before opening. Pairs with the max-area scorer.
func GreenRangePipeline(high float64) Pipeline {
	return Pipeline{
		Channels: ChannelGreen,
		Steps: []Step{
			{Op: OpEqualize},
			{Op: OpBlur, Size: 31},
			{Op: OpRange, Low: 0, High: high},
			{Op: OpOpen, Width: 27, Height: 27},
		},
	}
}

// Validate checks step parameters and that exactly one binarization step exists.
func (p Pipeline) Validate() error {
	if _, err := channelIndex(p.Channels); err != nil {
		return err
	}

	binarize := 0
	for i, s := range p.Steps {
		switch s.Op {
		case OpEqualize:
			if binarize > 0 {
				return fmt.Errorf("step %d: equalize after binarization has no effect", i)
			}
		case OpOpen:
			if s.Width <= 0 || s.Height <= 0 {
				return fmt.Errorf("step %d: open needs a positive width and height", i)
			}
		case OpBlur:
			if s.Size <= 0 || s.Size%2 == 0 {
				return fmt.Errorf("step %d: blur size must be odd and positive, got %d", i, s.Size)
			}
		case OpThreshold:
			binarize++
			if s.Cutoff < 0 || s.Cutoff > 255 {
				return fmt.Errorf("step %d: cutoff %.0f out of range 0-255", i, s.Cutoff)
			}
		case OpRange:
			binarize++
			if s.Low < 0 || s.High > 255 || s.Low > s.High {
				return fmt.Errorf("step %d: range [%.0f, %.0f] invalid", i, s.Low, s.High)
			}
		default:
			return fmt.Errorf("step %d: unknown op %q", i, s.Op)
		}
	}

	if binarize != 1 {
		return fmt.Errorf("pipeline needs exactly one threshold or range step, got %d", binarize)
	}
	return nil
}

func channelIndex(name string) (int, error) {
	switch name {
	case ChannelsAll, "":
		return -1, nil
	case ChannelBlue:
		return 0, nil
	case ChannelGreen:
		return 1, nil
	case ChannelRed:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown channel selection %q", name)
	}
}

// Preprocessor turns a band of a color frame into a binary mask.
// Structuring elements are built once and reused for every frame.
type Preprocessor struct {
	pipeline Pipeline
	channel  int // -1 for all channels
	kernels  map[int]gocv.Mat
}

// NewPreprocessor validates the pipeline and allocates its kernels.
// Call Close to release them.
func NewPreprocessor(p Pipeline) (*Preprocessor, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	channel, _ := channelIndex(p.Channels)

	pp := &Preprocessor{
		pipeline: p,
		channel:  channel,
		kernels:  make(map[int]gocv.Mat),
	}
	for i, s := range p.Steps {
		if s.Op == OpOpen {
			pp.kernels[i] = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(s.Width, s.Height))
		}
	}
	return pp, nil
}

// Process returns the binary mask of the band. The caller owns the mask.
// The frame is not modified.
func (p *Preprocessor) Process(frame gocv.Mat, band Band) (gocv.Mat, error) {
	r := band.Rect(frame.Cols(), frame.Rows())
	if r.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrEmptyBand, band.Name)
	}

	region := frame.Region(r)
	defer region.Close()

	channels := gocv.Split(region)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	selected := channels
	if p.channel >= 0 {
		if p.channel >= len(channels) {
			return gocv.NewMat(), fmt.Errorf("detection: frame has %d channels, %s requested", len(channels), p.pipeline.Channels)
		}
		selected = channels[p.channel : p.channel+1]
	}

	mask := gocv.NewMat()
	for i, ch := range selected {
		m := p.run(ch)
		if i == 0 {
			m.CopyTo(&mask)
		} else {
			gocv.BitwiseOr(mask, m, &mask)
		}
		m.Close()
	}
	return mask, nil
}

// run applies every step to a single-channel image.
func (p *Preprocessor) run(src gocv.Mat) gocv.Mat {
	cur := src.Clone()
	for i, s := range p.pipeline.Steps {
		next := gocv.NewMat()
		switch s.Op {
		case OpEqualize:
			gocv.EqualizeHist(cur, &next)
		case OpOpen:
			gocv.MorphologyEx(cur, &next, gocv.MorphOpen, p.kernels[i])
		case OpBlur:
			gocv.GaussianBlur(cur, &next, image.Pt(s.Size, s.Size), 0, 0, gocv.BorderDefault)
		case OpThreshold:
			typ := gocv.ThresholdBinary
			if s.Inverse {
				typ = gocv.ThresholdBinaryInv
			}
			gocv.Threshold(cur, &next, float32(s.Cutoff), 255, typ)
		case OpRange:
			gocv.InRangeWithScalar(cur, gocv.NewScalar(s.Low, 0, 0, 0), gocv.NewScalar(s.High, 0, 0, 0), &next)
		}
		cur.Close()
		cur = next
	}
	return cur
}

// Overlay paints the mask over its band in frame so the stream shows
// what the detector saw.
func (p *Preprocessor) Overlay(frame *gocv.Mat, band Band, mask gocv.Mat) {
	r := band.Rect(frame.Cols(), frame.Rows())
	if r.Empty() || mask.Rows() != r.Dy() || mask.Cols() != r.Dx() {
		return
	}

	region := frame.Region(r)
	defer region.Close()

	if frame.Channels() == 1 {
		mask.CopyTo(&region)
		return
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mask, &bgr, gocv.ColorGrayToBGR)
	bgr.CopyTo(&region)
}

// Close releases the structuring elements.
func (p *Preprocessor) Close() error {
	for i, k := range p.kernels {
		k.Close()
		delete(p.kernels, i)
	}
	return nil
}

// Extract returns the valid candidates of a binary mask.
// Contours are retrieved as a flat list; degenerate ones are dropped.
func Extract(mask gocv.Mat) []Candidate {
	contours := gocv.FindContours(mask, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	cands := make([]Candidate, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		if pv.Size() < 3 {
			continue
		}
		if c, ok := newCandidate(pv, pv.ToPoints()); ok {
			cands = append(cands, c)
		}
	}
	return cands
}
