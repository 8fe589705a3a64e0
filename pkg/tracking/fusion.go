package tracking

// FusionSource tells which bands produced a fused position.
type FusionSource string

const (
	SourceBoth     FusionSource = "both"
	SourceNear     FusionSource = "near"
	SourceFar      FusionSource = "far"
	SourceFallback FusionSource = "fallback" // No band saw the line
)

// Fused is the single horizontal line position of one frame.
type Fused struct {
	X      int          `json:"x"`
	Source FusionSource `json:"source"`
}

// Fuse combines the near and far band centroids into one position.
// The far band leads the turn, so it weighs twice as much. When neither band
// sees the line the position is pinned to the frame edge the line was last
// drifting toward, which turns the vehicle fully in that direction.
func Fuse(near, far *int, historyAverage float64, width int) Fused {
	switch {
	case near != nil && far != nil:
		return Fused{X: (*near + 2**far) / 3, Source: SourceBoth}
	case near != nil:
		return Fused{X: *near, Source: SourceNear}
	case far != nil:
		return Fused{X: *far, Source: SourceFar}
	}

	if historyAverage <= float64(width)/2 {
		return Fused{X: 0, Source: SourceFallback}
	}
	return Fused{X: width, Source: SourceFallback}
}
