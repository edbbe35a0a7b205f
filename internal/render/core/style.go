package core

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a drawing color. Supports true color (RGB), 256-color palette
// indices and the terminal's default color.
type Color struct {
	R, G, B uint8
	// Indexed means R holds a palette index (0-255); G and B are ignored.
	Indexed bool
	// Default marks the terminal's ambient default color.
	Default bool
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{Default: true}

// RGB creates a true color from components.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Palette creates an indexed palette color.
func Palette(index uint8) Color {
	return Color{R: index, Indexed: true}
}

// IsDefault returns true for the terminal's default color.
func (c Color) IsDefault() bool {
	return c.Default
}

// Equal returns true if both colors resolve identically.
func (c Color) Equal(other Color) bool {
	if c.Default || other.Default {
		return c.Default == other.Default
	}
	if c.Indexed != other.Indexed {
		return false
	}
	if c.Indexed {
		return c.R == other.R
	}
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// Blend mixes the color toward other in CIE-Lab space, which avoids the
// muddy midpoints a plain RGB lerp produces. Indexed and default colors
// cannot be mixed and snap to whichever side t favors.
func (c Color) Blend(other Color, t float64) Color {
	if c.Default || c.Indexed || other.Default || other.Indexed {
		if t < 0.5 {
			return c
		}
		return other
	}
	a := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	b := colorful.Color{R: float64(other.R) / 255, G: float64(other.G) / 255, B: float64(other.B) / 255}
	m := a.BlendLab(b, t).Clamped()
	return RGB(uint8(m.R*255+0.5), uint8(m.G*255+0.5), uint8(m.B*255+0.5))
}

// Luminance returns the perceived lightness of the color in [0, 1].
// Default and indexed colors report 0.5 since their resolution is up to
// the terminal.
func (c Color) Luminance() float64 {
	if c.Default || c.Indexed {
		return 0.5
	}
	col := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	l, _, _ := col.Lab()
	return l
}

// String renders the color for log output.
func (c Color) String() string {
	switch {
	case c.Default:
		return "default"
	case c.Indexed:
		return fmt.Sprintf("idx(%d)", c.R)
	default:
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
}

// GridLines is a bitmask of box-drawing decorations inscribed around the
// cells of a run.
type GridLines uint8

const (
	LineNone   GridLines = 0
	LineTop    GridLines = 1 << iota
	LineBottom
	LineLeft
	LineRight
)

// Has returns true if the mask contains the given line.
func (g GridLines) Has(line GridLines) bool {
	return g&line != 0
}

// TextAttr is the resolved style of a run of cells: concrete foreground and
// background colors, the legacy 4-bit attribute word carried for backends
// that still need it, boldness, and any grid-line decorations.
type TextAttr struct {
	Fg     Color
	Bg     Color
	Legacy uint16
	Bold   bool
	Lines  GridLines
}

// Equal returns true if two attributes resolve to the same style.
func (a TextAttr) Equal(other TextAttr) bool {
	return a.Fg.Equal(other.Fg) &&
		a.Bg.Equal(other.Bg) &&
		a.Legacy == other.Legacy &&
		a.Bold == other.Bold &&
		a.Lines == other.Lines
}

// CursorShape selects the cursor's appearance.
type CursorShape uint8

const (
	// CursorLegacy is the classic partial-height block, sized by
	// CursorState.HeightPercent.
	CursorLegacy CursorShape = iota
	CursorVerticalBar
	CursorUnderscore
	CursorEmptyBox
	CursorFullBox
)

// CursorState describes the cursor for one frame.
type CursorState struct {
	// Position in buffer coordinates.
	Position Point
	Visible  bool
	// HeightPercent is the legacy cursor's fill height, 1-100.
	HeightPercent int
	// DoubleWidth is set when the cursor sits on the lead half of a wide
	// glyph and must cover both columns.
	DoubleWidth bool
	Shape       CursorShape
	// Color overrides the backend's cursor color when UseColor is set.
	Color    Color
	UseColor bool
}

// FontDesc describes a requested font.
type FontDesc struct {
	Family    string
	PointSize int
}

// FontMetrics describes the font a backend actually selected.
type FontMetrics struct {
	Family    string
	PointSize int
	// CellSize is the pixel footprint of one single-width cell.
	CellSize PixelSize
}
