package positioning

import (
	"errors"
	"math"
)

const degenerateEpsilon = 1e-10

var (
	// ErrInsufficientAnchors is returned when fewer than three anchors are available.
	ErrInsufficientAnchors = errors.New("at least 3 anchors are required")
	// ErrDegenerateGeometry is returned when the anchors are collinear or coincident.
	ErrDegenerateGeometry = errors.New("anchors are collinear")
)

// Anchor is a reference point with an estimated range to the target.
type Anchor struct {
	ID       string
	X, Y     float64
	Distance float64
}

// Point is an estimated position.
type Point struct {
	X, Y float64
}

// Trilaterate solves for the position from the first three anchors.
func Trilaterate(anchors []Anchor) (Point, error) {
	if len(anchors) < 3 {
		return Point{}, ErrInsufficientAnchors
	}
	a1, a2, a3 := anchors[0], anchors[1], anchors[2]

	A := 2 * (a2.X - a1.X)
	B := 2 * (a2.Y - a1.Y)
	C := sq(a1.Distance) - sq(a2.Distance) - sq(a1.X) + sq(a2.X) - sq(a1.Y) + sq(a2.Y)
	D := 2 * (a3.X - a2.X)
	E := 2 * (a3.Y - a2.Y)
	F := sq(a2.Distance) - sq(a3.Distance) - sq(a2.X) + sq(a3.X) - sq(a2.Y) + sq(a3.Y)

	det := A*E - B*D
	if math.Abs(det) < degenerateEpsilon {
		return Point{}, ErrDegenerateGeometry
	}

	return Point{
		X: (C*E - F*B) / det,
		Y: (A*F - D*C) / det,
	}, nil
}

// Accuracy is the mean absolute residual between p and each anchor range.
func Accuracy(p Point, anchors []Anchor) float64 {
	if len(anchors) == 0 {
		return 0
	}
	var sum float64
	for _, a := range anchors {
		sum += math.Abs(math.Hypot(p.X-a.X, p.Y-a.Y) - a.Distance)
	}
	return sum / float64(len(anchors))
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func sq(v float64) float64 { return v * v }
