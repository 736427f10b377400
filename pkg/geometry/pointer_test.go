package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocate(t *testing.T) {
	origin := NewPoint2D(120, 48.5)
	tests := []struct {
		name   string
		ev     PointerEvent
		want   Point2D
		wantOK bool
	}{
		{
			name:   "mouse",
			ev:     MouseAt(200, 100),
			want:   NewPoint2D(80, 51.5),
			wantOK: true,
		},
		{
			name:   "single touch",
			ev:     TouchAt(NewPoint2D(200, 100)),
			want:   NewPoint2D(80, 51.5),
			wantOK: true,
		},
		{
			name:   "multi touch uses first contact",
			ev:     TouchAt(NewPoint2D(130, 50), NewPoint2D(500, 500)),
			want:   NewPoint2D(10, 1.5),
			wantOK: true,
		},
		{
			name:   "touch without contacts",
			ev:     TouchAt(),
			wantOK: false,
		},
		{
			name:   "left of surface goes negative",
			ev:     MouseAt(100, 40),
			want:   NewPoint2D(-20, -8.5),
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Locate(tt.ev, origin)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLocateMouseAndTouchAgree(t *testing.T) {
	origin := NewPoint2D(33, 7)
	for x := 0.0; x < 300; x += 37 {
		for y := 0.0; y < 200; y += 23 {
			m, _ := Locate(MouseAt(x, y), origin)
			tc, _ := Locate(TouchAt(NewPoint2D(x, y)), origin)
			assert.Equal(t, m, tc)
			assert.Equal(t, NewPoint2D(x-33, y-7), m)
		}
	}
}

func TestRectIntWithin(t *testing.T) {
	assert.True(t, RectInt{X: 0, Y: 0, Width: 10, Height: 10}.Within(10, 10))
	assert.False(t, RectInt{X: 1, Y: 0, Width: 10, Height: 10}.Within(10, 10))
	assert.False(t, RectInt{X: -1, Y: 0, Width: 4, Height: 3}.Within(10, 10))
	assert.True(t, RectInt{Width: 0, Height: 3}.Empty())
}
