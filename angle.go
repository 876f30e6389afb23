package touchwheel

import "math"

// CircularDelta returns the shortest signed difference a-b between two angles
// on a 2π-periodic domain. The result lies in [-π, π).
func CircularDelta(a, b float64) float64 {
	c := a - b
	if c >= math.Pi {
		c -= 2 * math.Pi
	}
	if c < -math.Pi {
		c += 2 * math.Pi
	}
	return c
}
