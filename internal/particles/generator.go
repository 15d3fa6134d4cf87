package particles

import (
	"math/rand/v2"
	"sync"
)

// Generator produces particle layouts from a random source.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil source yields a randomly seeded one,
// so layouts differ between runs; pass a fixed source for reproducible output.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Field generates a raindrop field for a row and intensity.
// The cursor starts at 0 and advances by a step in [MinStep, MaxStep] until it
// reaches the intensity's coverage, emitting one drop per step.
// forceSplat turns on the splat mark for every drop.
func (g *Generator) Field(row Row, intensity Intensity, forceSplat bool) []Spec {
	g.mu.Lock()
	defer g.mu.Unlock()

	coverage := intensity.Coverage()
	minDur, maxDur := intensity.DurationRange()
	edge := row.Edge()

	specs := make([]Spec, 0, coverage/MinStep)
	cursor := 0
	for cursor < coverage {
		step := MinStep + g.rng.IntN(MaxStep-MinStep+1)
		cursor += step

		ownSplat := g.rng.Float64() < SplatProbability
		specs = append(specs, Spec{
			Edge:     edge,
			Offset:   offsetFor(cursor, intensity),
			Cursor:   cursor,
			Step:     step,
			Bottom:   StartBottom,
			Delay:    g.rng.Float64() * MaxDelay,
			Duration: g.uniform(minDur, maxDur),
			Splat:    forceSplat || ownSplat,
		})
	}

	return specs
}

// Scatter places count points uniformly over the container with a duration in
// [minDur, maxDur) and a delay in [0, maxDelay).
func (g *Generator) Scatter(count int, minDur, maxDur, maxDelay float64) []Point {
	g.mu.Lock()
	defer g.mu.Unlock()

	points := make([]Point, count)
	for i := range points {
		points[i] = Point{
			Left:     g.rng.Float64() * 100,
			Top:      g.rng.Float64() * 100,
			Duration: g.uniform(minDur, maxDur),
			Delay:    g.rng.Float64() * maxDelay,
		}
	}
	return points
}

// uniform draws from [lo, hi). Caller holds g.mu.
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
