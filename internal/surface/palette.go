package surface

import "image/color"

// Pen colours offered by the toolbar.
var (
	Black = color.RGBA{A: 255}
	Red   = color.RGBA{R: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	Cyan  = color.RGBA{G: 255, B: 255, A: 255}
)

// NamedColor pairs a pen colour with its toolbar name.
type NamedColor struct {
	Name  string
	Color color.RGBA
}

// Palette returns the toolbar pen colours in display order.
func Palette() []NamedColor {
	return []NamedColor{
		{Name: "black", Color: Black},
		{Name: "red", Color: Red},
		{Name: "blue", Color: Blue},
		{Name: "cyan", Color: Cyan},
	}
}

// ColorByName looks up a palette colour. Unknown names fall back to black.
func ColorByName(name string) color.RGBA {
	for _, c := range Palette() {
		if c.Name == name {
			return c.Color
		}
	}
	return Black
}
