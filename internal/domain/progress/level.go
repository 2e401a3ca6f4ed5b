package progress

import "math"

// DefaultLevelStep is the points step used by DefaultLevelPolicy.
const DefaultLevelStep int64 = 100

// LevelPolicy maps a points total to a level. Implementations must be pure,
// total over non-negative totals, and monotonic non-decreasing.
type LevelPolicy interface {
	CalculateLevel(points int64) int
}

// LevelFunc adapts a function to LevelPolicy.
type LevelFunc func(points int64) int

// CalculateLevel implements LevelPolicy.
func (f LevelFunc) CalculateLevel(points int64) int {
	return f(points)
}

// StepPolicy grows levels quadratically: reaching level n+1 requires
// step * n^2 points.
//
//	level = floor(sqrt(points / step)) + 1
type StepPolicy struct {
	Step int64
}

// DefaultLevelPolicy returns a StepPolicy with DefaultLevelStep.
func DefaultLevelPolicy() StepPolicy {
	return StepPolicy{Step: DefaultLevelStep}
}

// CalculateLevel implements LevelPolicy.
func (p StepPolicy) CalculateLevel(points int64) int {
	if points <= 0 {
		return 1
	}
	step := p.Step
	if step <= 0 {
		step = DefaultLevelStep
	}
	return int(isqrt(points/step)) + 1
}

// PointsForLevel returns the minimum total that reaches level, capped at
// math.MaxInt64.
func (p StepPolicy) PointsForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	step := p.Step
	if step <= 0 {
		step = DefaultLevelStep
	}
	n := int64(level - 1)
	if n > math.MaxInt64/step/n {
		return math.MaxInt64
	}
	return step * n * n
}

// isqrt returns floor(sqrt(n)) for n >= 0, correcting float rounding.
// Comparisons divide instead of squaring so they cannot overflow.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}
