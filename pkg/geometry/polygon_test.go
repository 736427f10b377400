package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolygonBounds(t *testing.T) {
	poly := []Point2D{{X: 3, Y: -1}, {X: -2, Y: 4}, {X: 5, Y: 2}}
	assert.Equal(t, Rect{X: -2, Y: -1, Width: 7, Height: 5}, PolygonBounds(poly))
	assert.Equal(t, Rect{}, PolygonBounds(nil))
}
