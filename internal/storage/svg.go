package storage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var ErrNoTrajectory = errors.New("storage: no trajectory")

// TrajectorySVG draws the path of object in plane ("xz", "xy" or "yz") from
// a stored trace. Samples where the object was absent are skipped.
func TrajectorySVG(w io.Writer, tr *Trace, object, plane string, width, height int, stroke string) error {
	if len(plane) != 2 || !strings.Contains("xyz", plane[:1]) || !strings.Contains("xyz", plane[1:]) {
		return fmt.Errorf("storage: bad plane %q", plane)
	}
	xs, okX := tr.Column(object + "." + plane[:1])
	ys, okY := tr.Column(object + "." + plane[1:])
	if !okX || !okY {
		return fmt.Errorf("%w: %s", ErrNoTrajectory, object)
	}

	type point struct{ X, Y float64 }
	points := make([]point, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		points = append(points, point{xs[i], ys[i]})
	}
	if len(points) < 2 {
		return fmt.Errorf("%w: %s has %d samples", ErrNoTrajectory, object, len(points))
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>
`)
	_, err := io.WriteString(w, sb.String())
	return err
}
