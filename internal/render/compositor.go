package render

import (
	"fmt"

	"github.com/dshills/termpaint/internal/render/backend"
	"github.com/dshills/termpaint/internal/render/core"
)

// paintFrameForBackend runs the complete frame procedure for one head.
//
// The content lock is held from before frame start until after the last
// draw, and released before Present: presentation may block on the output
// device and must not stall goroutines mutating the grid. Frames are
// bracketed begin/end even when a step fails in between, so the head never
// sees an unbalanced frame.
func (r *Renderer) paintFrameForBackend(b backend.Backend) error {
	r.content.Lock()
	unlocked := false
	unlock := func() {
		if !unlocked {
			unlocked = true
			r.content.Unlock()
		}
	}
	defer unlock()

	r.checkViewportAndScroll()

	ready, err := b.BeginFrame()
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if !ready {
		// Nothing to do; the head reported itself clean.
		return nil
	}

	frameOpen := true
	closeFrame := func() {
		if !frameOpen {
			return
		}
		frameOpen = false
		if cerr := b.EndFrame(); cerr != nil {
			r.logger.Error("end frame", "error", cerr)
		}
	}
	defer closeFrame()

	fg, bg := r.content.DefaultColors()
	if err := b.UpdateDrawingColors(fg, bg, 0, false, true); err != nil {
		return fmt.Errorf("update drawing colors: %w", err)
	}
	if err := b.ScrollFrame(); err != nil {
		return fmt.Errorf("scroll frame: %w", err)
	}
	if err := b.PaintBackground(); err != nil {
		return fmt.Errorf("paint background: %w", err)
	}

	r.paintBufferRows(b)
	r.paintComposition(b)
	r.paintSelection(b)
	r.paintCursor(b)
	if err := b.UpdateTitle(r.content.Title()); err != nil {
		return fmt.Errorf("update title: %w", err)
	}

	closeFrame()
	unlock()

	if err := b.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// paintBufferRows redraws the grid content inside the head's dirty
// rectangle, row by row. A failing row is logged and skipped; the rest of
// the frame proceeds.
func (r *Renderer) paintBufferRows(b backend.Backend) {
	dirty := b.DirtyRect()
	if dirty.IsEmpty() {
		return
	}
	view := r.content.Viewport()
	size := r.content.BufferSize()

	bufDirty := dirty.Translate(view.Top, view.Left)
	bufDirty = bufDirty.Intersect(core.RectFromSize(0, 0, size.Rows, size.Cols))
	bufDirty = bufDirty.Intersect(view)
	if bufDirty.IsEmpty() {
		return
	}

	for bufRow := bufDirty.Top; bufRow < bufDirty.Bottom; bufRow++ {
		row := r.content.Row(bufRow)
		left := bufDirty.Left
		right := bufDirty.Right
		if right > row.Width() {
			right = row.Width()
		}
		if right <= left {
			continue
		}
		wrapped := row.Wrapped && right == row.MeasureRight()
		target := core.Point{Row: bufRow - view.Top, Col: left - view.Left}
		if err := r.paintRowRegion(b, row, left, right, target, wrapped); err != nil {
			r.logger.Warn("paint row", "row", bufRow, "error", err)
		}
	}
}

// paintRowRegion draws cells [left, right) of row at target, one draw call
// per attribute run. Grid-line decorations get a second call per run when
// the provider permits them.
func (r *Renderer) paintRowRegion(b backend.Backend, row core.Row, left, right int, target core.Point, wrapped bool) error {
	gridLines := r.content.GridLinesAllowed()
	col := left
	for col < right {
		attr, runLen := row.AttrRunAt(col)
		if runLen <= 0 {
			break
		}
		n := runLen
		if col+n > right {
			n = right - col
		}
		if err := b.UpdateDrawingColors(attr.Fg, attr.Bg, attr.Legacy, attr.Bold, false); err != nil {
			return fmt.Errorf("update drawing colors: %w", err)
		}
		seg := decodeSegment(row.Cells, col, n, target, wrapped)
		if err := b.PaintRow(seg); err != nil {
			return fmt.Errorf("paint row segment: %w", err)
		}
		if gridLines {
			if err := b.PaintGridLines(attr.Lines, attr.Fg, n, target); err != nil {
				return fmt.Errorf("paint grid lines: %w", err)
			}
		}
		col += n
		target.Col += n
	}
	return nil
}

// decodeSegment turns n consecutive cells starting at start into one draw
// payload. Trail halves of wide glyphs duplicate the lead glyph in storage
// and are dropped here, except when the region begins mid-glyph: then the
// glyph is emitted once at full width, the target shifts one column left,
// and TrimLeft tells the head to clip the half that was not requested.
func decodeSegment(cells []core.Cell, start, n int, target core.Point, wrapped bool) core.RowSegment {
	seg := core.RowSegment{
		Runes:   make([]rune, 0, n),
		Widths:  make([]int, 0, n),
		Target:  target,
		Wrapped: wrapped,
	}
	for i := 0; i < n && start+i < len(cells); i++ {
		c := cells[start+i]
		switch {
		case c.Class == core.WideTrail && i == 0:
			seg.Runes = append(seg.Runes, c.Glyph)
			seg.Widths = append(seg.Widths, 2)
			seg.Target.Col--
			seg.TrimLeft = true
		case c.Class == core.WideTrail:
			// Duplicate of the preceding lead cell.
		case c.Class == core.WideLead:
			seg.Runes = append(seg.Runes, c.Glyph)
			seg.Widths = append(seg.Widths, 2)
		default:
			seg.Runes = append(seg.Runes, c.Glyph)
			seg.Widths = append(seg.Widths, 1)
		}
	}
	return seg
}

// paintComposition overlays the input-method areas on top of the grid
// content, clipped to the head's dirty rectangle. Overlay rows reuse the
// attribute-run decoding that grid rows use.
func (r *Renderer) paintComposition(b backend.Backend) {
	areas := r.content.CompositionAreas()
	if len(areas) == 0 {
		return
	}
	dirty := b.DirtyRect()
	if dirty.IsEmpty() {
		return
	}
	for _, area := range areas {
		if area.Hidden {
			continue
		}
		clip := area.At.Intersect(dirty)
		if clip.IsEmpty() {
			continue
		}
		for localRow := clip.Top; localRow < clip.Bottom; localRow++ {
			idx := localRow - area.At.Top
			if idx < 0 || idx >= len(area.Rows) {
				continue
			}
			row := area.Rows[idx]
			left := clip.Left - area.At.Left
			right := clip.Right - area.At.Left
			if right > row.Width() {
				right = row.Width()
			}
			if right <= left {
				continue
			}
			target := core.Point{Row: localRow, Col: clip.Left}
			if err := r.paintRowRegion(b, row, left, right, target, false); err != nil {
				r.logger.Warn("paint composition row", "row", localRow, "error", err)
			}
		}
	}
}

// paintSelection repaints the intersection of the selection with the
// head's dirty rectangle.
func (r *Renderer) paintSelection(b backend.Backend) {
	rects := r.selectionViewportRects()
	if len(rects) == 0 {
		return
	}
	dirty := b.DirtyRect()
	for _, rect := range rects {
		clipped := rect.Intersect(dirty)
		if clipped.IsEmpty() {
			continue
		}
		if err := b.PaintSelection(clipped); err != nil {
			r.logger.Warn("paint selection", "error", err)
		}
	}
}

// paintCursor draws the cursor when it is visible and inside the viewport.
func (r *Renderer) paintCursor(b backend.Backend) {
	cur := r.content.Cursor()
	if !cur.Visible {
		return
	}
	view := r.content.Viewport()
	if !view.Contains(cur.Position) {
		return
	}
	cur.Position = cur.Position.Translate(-view.Top, -view.Left)
	if err := b.PaintCursor(cur); err != nil {
		r.logger.Warn("paint cursor", "error", err)
	}
}
