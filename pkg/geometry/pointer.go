package geometry

// PointerKind identifies the input device behind a pointer event.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
)

func (k PointerKind) String() string {
	switch k {
	case PointerMouse:
		return "mouse"
	case PointerTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// PointerEvent is a device event in viewport coordinates.
// Mouse events carry their position in Client; touch events carry every
// active contact in Touches.
type PointerEvent struct {
	Kind    PointerKind
	Client  Point2D
	Touches []Point2D
}

// MouseAt returns a mouse event at viewport position (x, y).
func MouseAt(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerMouse, Client: Point2D{X: x, Y: y}}
}

// TouchAt returns a touch event with the given contacts.
func TouchAt(touches ...Point2D) PointerEvent {
	return PointerEvent{Kind: PointerTouch, Touches: touches}
}

// Locate converts a viewport event into coordinates relative to a surface
// whose top-left corner sits at origin. Touch events use the first contact.
// ok is false for a touch event with no contacts.
func Locate(ev PointerEvent, origin Point2D) (p Point2D, ok bool) {
	switch ev.Kind {
	case PointerTouch:
		if len(ev.Touches) == 0 {
			return Point2D{}, false
		}
		return ev.Touches[0].Sub(origin), true
	default:
		return ev.Client.Sub(origin), true
	}
}
