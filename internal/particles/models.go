// Package particles generates randomized animation layouts for rain, snow and star fields.
package particles

// Row is a parallax depth layer.
type Row string

const (
	RowFront Row = "front"
	RowBack  Row = "back"
)

// Edge returns the horizontal edge offsets are measured from.
func (r Row) Edge() Edge {
	if r == RowBack {
		return EdgeRight
	}
	return EdgeLeft
}

// Intensity selects field density and drop speed.
type Intensity string

const (
	IntensityNormal Intensity = "normal"
	IntensityHeavy  Intensity = "heavy"
)

// Edge is the side a lateral offset is measured from.
type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
)

// Field generation constants.
const (
	MinStep = 2
	MaxStep = 5

	// SparseCoverage is the cursor target for normal fields.
	SparseCoverage = 100

	// DenseCoverage is the cursor target for heavy fields.
	DenseCoverage = 200

	// StartBottom places drops just above the visible area (percent from bottom).
	StartBottom = 100.0

	// SplatProbability is the chance a drop renders a terminal splat on its own.
	SplatProbability = 0.3

	// MaxDelay bounds the start delay in seconds.
	MaxDelay = 1.0
)

// Coverage returns the cursor target for an intensity.
func (i Intensity) Coverage() int {
	if i == IntensityHeavy {
		return DenseCoverage
	}
	return SparseCoverage
}

// DurationRange returns the animation duration bounds in seconds.
// Heavy drops fall faster.
func (i Intensity) DurationRange() (lo, hi float64) {
	if i == IntensityHeavy {
		return 0.5, 0.7
	}
	return 0.7, 1.0
}

// Spec describes one raindrop. It is immutable once generated.
type Spec struct {
	// Edge is the side Offset is measured from.
	Edge Edge

	// Offset is the lateral position in percent. It stays below
	// SparseCoverage+MaxStep; only a pass's final drop exceeds 100.
	Offset float64

	// Cursor is the accumulated lateral cursor that produced Offset.
	Cursor int

	// Step is the cursor advance that produced this drop, within [MinStep, MaxStep].
	Step int

	// Bottom is the starting vertical offset in percent from the bottom.
	Bottom float64

	// Delay and Duration are in seconds.
	Delay    float64
	Duration float64

	// Splat reports whether the drop renders a terminal splat mark.
	Splat bool
}

// Point is a scattered particle such as a snowflake or a star.
type Point struct {
	// Left and Top are percentages of the container.
	Left float64
	Top  float64

	// Delay and Duration are in seconds.
	Delay    float64
	Duration float64
}

// offsetFor positions a drop. Sparse fields use the cursor as is, so the last
// drop may sit just past the far edge. Dense fields make two passes over the
// container: cursors past SparseCoverage start again from the near edge.
func offsetFor(cursor int, intensity Intensity) float64 {
	if intensity == IntensityHeavy && cursor > SparseCoverage {
		return float64(cursor - SparseCoverage)
	}
	return float64(cursor)
}
