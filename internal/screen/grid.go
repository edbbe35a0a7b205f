// Package screen holds the character grid the repaint engine reads from:
// a fixed-size cell matrix plus the cursor, selection, title and
// composition state that belongs to the visible screen.
package screen

import (
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/termpaint/internal/render"
	"github.com/dshills/termpaint/internal/render/core"
)

var _ render.ContentProvider = (*Grid)(nil)

// Grid is a concrete content provider. It owns one mutex serving as the
// content lock: the renderer holds it for the duration of a frame, and
// mutators must hold it across each edit. Accessors and mutators do not
// lock internally; bracket them with Lock/Unlock.
type Grid struct {
	mu sync.Mutex

	size  core.Size
	rows  []core.Row
	view  core.Rect
	fg    core.Color
	bg    core.Color
	title string

	cursor    core.CursorState
	selection []core.Rect
	areas     []render.CompositionArea
	gridLines bool
}

// NewGrid creates a cols x rows grid filled with default blanks. The
// viewport initially covers the whole buffer; give the buffer more rows
// than the viewport and move the viewport for scrollback.
func NewGrid(cols, rows int) *Grid {
	g := &Grid{
		size: core.Size{Cols: cols, Rows: rows},
		view: core.RectFromSize(0, 0, rows, cols),
		fg:   core.ColorDefault,
		bg:   core.ColorDefault,
		cursor: core.CursorState{
			Visible:       true,
			HeightPercent: 25,
			Shape:         core.CursorLegacy,
		},
	}
	g.rows = make([]core.Row, rows)
	for i := range g.rows {
		g.rows[i] = blankRow(cols)
	}
	return g
}

func blankRow(cols int) core.Row {
	cells := make([]core.Cell, cols)
	for i := range cells {
		cells[i] = core.BlankCell(core.TextAttr{})
	}
	return core.Row{Cells: cells}
}

// Lock acquires the content lock.
func (g *Grid) Lock() { g.mu.Lock() }

// Unlock releases the content lock.
func (g *Grid) Unlock() { g.mu.Unlock() }

// Viewport returns the visible rectangle in buffer coordinates.
func (g *Grid) Viewport() core.Rect { return g.view }

// BufferSize returns the backing grid extent.
func (g *Grid) BufferSize() core.Size { return g.size }

// Row returns the row at the given buffer index. Out-of-range indices
// return an empty row.
func (g *Grid) Row(row int) core.Row {
	if row < 0 || row >= len(g.rows) {
		return core.Row{}
	}
	return g.rows[row]
}

// SelectionRects returns the highlighted spans in buffer coordinates.
func (g *Grid) SelectionRects() []core.Rect { return g.selection }

// Cursor returns the cursor state.
func (g *Grid) Cursor() core.CursorState { return g.cursor }

// DefaultColors returns the ambient foreground and background.
func (g *Grid) DefaultColors() (fg, bg core.Color) { return g.fg, g.bg }

// Title returns the window title.
func (g *Grid) Title() string { return g.title }

// CompositionAreas returns the active input-method overlays.
func (g *Grid) CompositionAreas() []render.CompositionArea { return g.areas }

// GridLinesAllowed reports whether box decorations may be drawn.
func (g *Grid) GridLinesAllowed() bool { return g.gridLines }

// WriteString writes s starting at (row, col) with the given attribute,
// splitting it into grapheme clusters and storing wide glyphs as
// lead/trail pairs. Writing stops at the row edge. The returned rectangle
// covers the cells changed, in buffer coordinates, including any wide
// glyph halves orphaned at the edges of the write.
func (g *Grid) WriteString(row, col int, s string, attr core.TextAttr) core.Rect {
	if row < 0 || row >= len(g.rows) || col >= g.size.Cols {
		return core.Rect{}
	}
	if col < 0 {
		col = 0
	}
	cells := g.rows[row].Cells
	lo, hi := col, col

	// Starting on a trail half orphans the lead cell to its left; both
	// halves become blanks and join the dirty span.
	if col > 0 && cells[col].Class == core.WideTrail {
		cells[col-1] = core.BlankCell(cells[col-1].Attr)
		cells[col] = core.BlankCell(cells[col].Attr)
		lo = col - 1
		hi = col + 1
	}

	gr := uniseg.NewGraphemes(s)
	for gr.Next() && col < g.size.Cols {
		cluster := gr.Str()
		glyph := gr.Runes()[0]
		width := runewidth.StringWidth(cluster)
		if width >= 2 {
			if col+1 >= g.size.Cols {
				// No room for the trail half; pad with a blank instead.
				cells[col] = core.BlankCell(attr)
				col++
				break
			}
			cells[col] = core.Cell{Glyph: glyph, Class: core.WideLead, Attr: attr}
			cells[col+1] = core.Cell{Glyph: glyph, Class: core.WideTrail, Attr: attr}
			col += 2
			continue
		}
		cells[col] = core.Cell{Glyph: glyph, Class: core.Single, Attr: attr}
		col++
	}
	if col > hi {
		hi = col
	}

	// Ending on the lead half of an existing pair orphans its trail; blank
	// it and extend the dirty span over it.
	if col < len(cells) && cells[col].Class == core.WideTrail {
		cells[col] = core.BlankCell(cells[col].Attr)
		hi = col + 1
	}
	if hi == lo {
		return core.Rect{}
	}
	return core.Rect{Top: row, Left: lo, Bottom: row + 1, Right: hi}
}

// SetCell stores a single-width cell. No-op out of range.
func (g *Grid) SetCell(row, col int, c core.Cell) {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= g.size.Cols {
		return
	}
	g.rows[row].Cells[col] = c
}

// FillRow resets a whole row to blanks with the given attribute.
func (g *Grid) FillRow(row int, attr core.TextAttr) {
	if row < 0 || row >= len(g.rows) {
		return
	}
	cells := g.rows[row].Cells
	for i := range cells {
		cells[i] = core.BlankCell(attr)
	}
	g.rows[row].Wrapped = false
}

// SetWrapped marks whether the row ended in a soft wrap.
func (g *Grid) SetWrapped(row int, wrapped bool) {
	if row < 0 || row >= len(g.rows) {
		return
	}
	g.rows[row].Wrapped = wrapped
}

// ScrollUp rotates the buffer n rows up, discarding the topmost rows and
// appending blanks at the bottom. Returns the delta the renderer should be
// told about via TriggerScrollDelta.
func (g *Grid) ScrollUp(n int) core.Delta {
	if n <= 0 {
		return core.Delta{}
	}
	if n >= len(g.rows) {
		for i := range g.rows {
			g.rows[i] = blankRow(g.size.Cols)
		}
		return core.Delta{Rows: -len(g.rows)}
	}
	copy(g.rows, g.rows[n:])
	for i := len(g.rows) - n; i < len(g.rows); i++ {
		g.rows[i] = blankRow(g.size.Cols)
	}
	return core.Delta{Rows: -n}
}

// SetViewport moves the visible rectangle, clamped to the buffer.
func (g *Grid) SetViewport(view core.Rect) {
	bounds := core.RectFromSize(0, 0, g.size.Rows, g.size.Cols)
	clipped := view.Intersect(bounds)
	if clipped.IsEmpty() {
		return
	}
	g.view = clipped
}

// Resize changes the grid dimensions, preserving overlapping content. The
// viewport is reset to cover the whole buffer.
func (g *Grid) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	next := make([]core.Row, rows)
	for i := range next {
		next[i] = blankRow(cols)
		if i < len(g.rows) {
			n := copy(next[i].Cells, g.rows[i].Cells)
			// A wide glyph split by the new edge loses its lead half.
			if n > 0 && next[i].Cells[n-1].Class == core.WideLead {
				next[i].Cells[n-1] = core.BlankCell(next[i].Cells[n-1].Attr)
			}
			next[i].Wrapped = g.rows[i].Wrapped && cols == g.size.Cols
		}
	}
	g.rows = next
	g.size = core.Size{Cols: cols, Rows: rows}
	g.view = core.RectFromSize(0, 0, rows, cols)
}

// SetCursor replaces the cursor state.
func (g *Grid) SetCursor(cur core.CursorState) { g.cursor = cur }

// MoveCursor places the cursor, marking it double width when it lands on
// the lead half of a wide glyph.
func (g *Grid) MoveCursor(row, col int) {
	g.cursor.Position = core.Point{Row: row, Col: col}
	g.cursor.DoubleWidth = false
	if row >= 0 && row < len(g.rows) && col >= 0 && col < g.size.Cols {
		g.cursor.DoubleWidth = g.rows[row].Cells[col].Class == core.WideLead
	}
}

// SetSelection replaces the selection spans.
func (g *Grid) SetSelection(rects []core.Rect) {
	g.selection = append([]core.Rect(nil), rects...)
}

// ClearSelection removes the selection.
func (g *Grid) ClearSelection() { g.selection = nil }

// SetTitle sets the window title.
func (g *Grid) SetTitle(title string) { g.title = title }

// SetCompositionAreas replaces the input-method overlays.
func (g *Grid) SetCompositionAreas(areas []render.CompositionArea) {
	g.areas = append([]render.CompositionArea(nil), areas...)
}

// SetGridLinesAllowed toggles box decorations.
func (g *Grid) SetGridLinesAllowed(allowed bool) { g.gridLines = allowed }

// SetDefaultColors sets the ambient foreground and background.
func (g *Grid) SetDefaultColors(fg, bg core.Color) {
	g.fg = fg
	g.bg = bg
}
