// Package core provides the shared geometry, cell and style types for the
// repaint subsystem. It exists so the render package and the backend heads
// can share types without an import cycle.
package core

// Point is a position in cell space. Depending on context it is either a
// buffer coordinate or a viewport-local coordinate; the render package
// translates between the two before anything reaches a backend.
type Point struct {
	Row int
	Col int
}

// Translate returns the point moved by the given row/column offsets.
func (p Point) Translate(dRow, dCol int) Point {
	return Point{Row: p.Row + dRow, Col: p.Col + dCol}
}

// Delta is a scroll distance in cells.
type Delta struct {
	Rows int
	Cols int
}

// IsZero returns true if the delta moves nothing.
func (d Delta) IsZero() bool {
	return d.Rows == 0 && d.Cols == 0
}

// Size is a width/height pair in cells.
type Size struct {
	Cols int
	Rows int
}

// Rect is an axis-aligned rectangle in cell space. Bottom and Right are
// exclusive.
type Rect struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// RectFromSize builds a rectangle from its top-left corner and dimensions.
func RectFromSize(top, left, rows, cols int) Rect {
	return Rect{Top: top, Left: left, Bottom: top + rows, Right: left + cols}
}

// RectAt returns the single-cell rectangle covering p.
func RectAt(p Point) Rect {
	return Rect{Top: p.Row, Left: p.Col, Bottom: p.Row + 1, Right: p.Col + 1}
}

// Width returns the number of columns covered.
func (r Rect) Width() int {
	if r.Right <= r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the number of rows covered.
func (r Rect) Height() int {
	if r.Bottom <= r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// IsEmpty returns true if the rectangle covers no cells.
func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains returns true if p lies within the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.Row >= r.Top && p.Row < r.Bottom && p.Col >= r.Left && p.Col < r.Right
}

// Intersects returns true if the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right && r.Right > other.Left &&
		r.Top < other.Bottom && r.Bottom > other.Top
}

// Intersect returns the overlapping region, or an empty rectangle.
func (r Rect) Intersect(other Rect) Rect {
	if !r.Intersects(other) {
		return Rect{}
	}
	return Rect{
		Top:    maxInt(r.Top, other.Top),
		Left:   maxInt(r.Left, other.Left),
		Bottom: minInt(r.Bottom, other.Bottom),
		Right:  minInt(r.Right, other.Right),
	}
}

// Union returns the smallest rectangle covering both rectangles.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{
		Top:    minInt(r.Top, other.Top),
		Left:   minInt(r.Left, other.Left),
		Bottom: maxInt(r.Bottom, other.Bottom),
		Right:  maxInt(r.Right, other.Right),
	}
}

// Translate returns the rectangle moved by the given row/column offsets.
func (r Rect) Translate(dRow, dCol int) Rect {
	return Rect{
		Top:    r.Top + dRow,
		Left:   r.Left + dCol,
		Bottom: r.Bottom + dRow,
		Right:  r.Right + dCol,
	}
}

// Equals returns true if the two rectangles are identical.
func (r Rect) Equals(other Rect) bool {
	return r == other
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{Row: r.Top, Col: r.Left}
}

// PixelSize is a width/height pair in pixels.
type PixelSize struct {
	W int
	H int
}

// PixelRect is a rectangle in pixel space, used for system-originated
// invalidations and window sizing.
type PixelRect struct {
	X int
	Y int
	W int
	H int
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
