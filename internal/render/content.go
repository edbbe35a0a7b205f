// Package render is the incremental repaint engine: it computes the
// minimal screen regions that must be redrawn after grid mutations and
// drives every attached output head to redraw them, frame by frame, while
// the grid keeps changing on other goroutines.
package render

import "github.com/dshills/termpaint/internal/render/core"

// ContentProvider is the read-only source of everything a frame paints:
// the cell grid, cursor, selection, title and composition overlays. It is
// borrowed, not owned; its lifetime exceeds the renderer's.
//
// Lock/Unlock expose the process-wide content lock. The renderer holds it
// for the bulk of each per-head frame and releases it before presentation,
// so a blocking present never stalls goroutines mutating the grid.
type ContentProvider interface {
	// Lock acquires the exclusive content lock.
	Lock()
	// Unlock releases it.
	Unlock()

	// Viewport is the currently visible rectangle, in buffer coordinates.
	Viewport() core.Rect
	// BufferSize is the full extent of the backing grid.
	BufferSize() core.Size
	// Row returns the grid row at the given buffer row index.
	Row(row int) core.Row
	// SelectionRects returns the highlighted row-spans in buffer
	// coordinates, top to bottom.
	SelectionRects() []core.Rect
	// Cursor describes the cursor for the current frame.
	Cursor() core.CursorState
	// DefaultColors resolves the ambient foreground and background.
	DefaultColors() (fg, bg core.Color)
	// Title is the current window title.
	Title() string
	// CompositionAreas lists the active input-method overlays.
	CompositionAreas() []CompositionArea
	// GridLinesAllowed reports whether box decorations may be drawn.
	GridLinesAllowed() bool
}

// CompositionArea is one input-method overlay: a small private row buffer
// and its placement relative to the viewport origin.
type CompositionArea struct {
	// Rows is the overlay's own buffer; row i covers placement row
	// At.Top+i.
	Rows []core.Row
	// At is the placement rectangle, viewport-relative.
	At core.Rect
	// Hidden suppresses the overlay without discarding it.
	Hidden bool
}
