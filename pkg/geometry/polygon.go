package geometry

import "math"

// PolygonBounds returns the axis-aligned bounding box of the vertices.
// It returns the zero Rect for an empty polygon.
func PolygonBounds(polygon []Point2D) Rect {
	if len(polygon) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range polygon {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
