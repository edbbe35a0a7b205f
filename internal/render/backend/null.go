package backend

import (
	"sync"

	"github.com/dshills/termpaint/internal/render/core"
)

var _ Backend = (*Null)(nil)

// Null is an in-memory head that records every call it receives. It backs
// the renderer's tests and doubles as a sink when a host wants the repaint
// machinery without any output.
type Null struct {
	mu sync.Mutex

	viewport core.Rect
	dirty    core.Rect
	title    string
	pushed   string

	// Ops records the order of operations within and across frames.
	Ops []string

	// Captures of interesting payloads, in call order.
	ScrollDeltas    []core.Delta
	InvalidRects    []core.Rect
	SelectionInvals [][]core.Rect
	CursorInvals    []core.Point
	Viewports       []core.Rect
	Rows            []core.RowSegment
	GridLineCalls   []GridLineCall
	Selections      []core.Rect
	Cursors         []core.CursorState
	Titles          []string
	ColorUpdates    []ColorUpdate
	Presents        int
	BeginFrames     int
	EndFrames       int
	Teardowns       int

	// Failure injection. Each error fires on every call until cleared.
	BeginErr      error
	ScrollErr     error
	BackgroundErr error
	RowErr        error
	PresentErr    error

	// Idle forces BeginFrame to report nothing-to-paint.
	Idle bool
	// WantsFinalRepaint is the answer to PrepareForTeardown.
	WantsFinalRepaint bool
	// WantsCirclingRepaint is the answer to InvalidateCircling.
	WantsCirclingRepaint bool
	// Metrics, when non-nil, makes the font queries succeed.
	Metrics *core.FontMetrics

	closed bool
}

// GridLineCall captures one PaintGridLines invocation.
type GridLineCall struct {
	Lines  core.GridLines
	Color  core.Color
	Length int
	Target core.Point
}

// ColorUpdate captures one UpdateDrawingColors invocation.
type ColorUpdate struct {
	Fg, Bg     core.Color
	Legacy     uint16
	Bold       bool
	Background bool
}

// NewNull creates a recording head with a cols x rows viewport.
func NewNull(cols, rows int) *Null {
	return &Null{viewport: core.RectFromSize(0, 0, rows, cols)}
}

func (n *Null) record(op string) {
	n.Ops = append(n.Ops, op)
}

func (n *Null) markDirty(region core.Rect) {
	local := core.RectFromSize(0, 0, n.viewport.Height(), n.viewport.Width())
	n.dirty = n.dirty.Union(region.Intersect(local))
}

func (n *Null) BeginFrame() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("begin-frame")
	n.BeginFrames++
	if n.BeginErr != nil {
		return false, n.BeginErr
	}
	if n.Idle {
		return false, nil
	}
	return true, nil
}

func (n *Null) EndFrame() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("end-frame")
	n.EndFrames++
	n.dirty = core.Rect{}
	return nil
}

func (n *Null) Present() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("present")
	n.Presents++
	return n.PresentErr
}

func (n *Null) Invalidate(region core.Rect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate")
	n.InvalidRects = append(n.InvalidRects, region)
	n.markDirty(region)
	return nil
}

func (n *Null) InvalidateSystem(px core.PixelRect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-system")
	n.markDirty(n.viewportInCellsLocked(px))
	return nil
}

func (n *Null) InvalidateScroll(delta core.Delta) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-scroll")
	n.ScrollDeltas = append(n.ScrollDeltas, delta)
	// Reusing scrolled output is not modeled; the shifted area is simply
	// repainted.
	n.dirty = core.RectFromSize(0, 0, n.viewport.Height(), n.viewport.Width())
	return nil
}

func (n *Null) InvalidateCursor(pos core.Point) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-cursor")
	n.CursorInvals = append(n.CursorInvals, pos)
	n.markDirty(core.RectAt(pos))
	return nil
}

func (n *Null) InvalidateSelection(rects []core.Rect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-selection")
	captured := make([]core.Rect, len(rects))
	copy(captured, rects)
	n.SelectionInvals = append(n.SelectionInvals, captured)
	for _, r := range rects {
		n.markDirty(r)
	}
	return nil
}

func (n *Null) InvalidateCircling() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-circling")
	return n.WantsCirclingRepaint, nil
}

func (n *Null) InvalidateAll() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-all")
	n.dirty = core.RectFromSize(0, 0, n.viewport.Height(), n.viewport.Width())
	return nil
}

func (n *Null) InvalidateTitle(title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("invalidate-title")
	n.title = title
	return nil
}

func (n *Null) DirtyRect() core.Rect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

func (n *Null) ViewportInCells(px core.PixelRect) core.Rect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.viewportInCellsLocked(px)
}

// viewportInCellsLocked assumes a nominal 1x1 pixel cell.
func (n *Null) viewportInCellsLocked(px core.PixelRect) core.Rect {
	return core.RectFromSize(px.Y, px.X, px.H, px.W)
}

func (n *Null) UpdateViewport(view core.Rect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("update-viewport")
	n.Viewports = append(n.Viewports, view)
	n.viewport = view
	return nil
}

func (n *Null) PaintBackground() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("paint-background")
	return n.BackgroundErr
}

func (n *Null) PaintRow(seg core.RowSegment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("paint-row")
	n.Rows = append(n.Rows, seg)
	return n.RowErr
}

func (n *Null) PaintGridLines(lines core.GridLines, color core.Color, length int, target core.Point) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("paint-gridlines")
	n.GridLineCalls = append(n.GridLineCalls, GridLineCall{Lines: lines, Color: color, Length: length, Target: target})
	return nil
}

func (n *Null) PaintSelection(rect core.Rect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("paint-selection")
	n.Selections = append(n.Selections, rect)
	return nil
}

func (n *Null) PaintCursor(cur core.CursorState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("paint-cursor")
	n.Cursors = append(n.Cursors, cur)
	return nil
}

func (n *Null) UpdateTitle(title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if title == n.pushed {
		return nil
	}
	n.record("update-title")
	n.pushed = title
	n.Titles = append(n.Titles, title)
	return nil
}

func (n *Null) UpdateDrawingColors(fg, bg core.Color, legacy uint16, bold, includeBackground bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("update-colors")
	n.ColorUpdates = append(n.ColorUpdates, ColorUpdate{Fg: fg, Bg: bg, Legacy: legacy, Bold: bold, Background: includeBackground})
	return nil
}

func (n *Null) ScrollFrame() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("scroll-frame")
	return n.ScrollErr
}

func (n *Null) FontSize() (core.PixelSize, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Metrics == nil {
		return core.PixelSize{}, ErrUnsupported
	}
	return n.Metrics.CellSize, nil
}

func (n *Null) ProposedFont(desired core.FontDesc, dpi int) (core.FontMetrics, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Metrics == nil {
		return core.FontMetrics{}, ErrUnsupported
	}
	return *n.Metrics, nil
}

func (n *Null) IsGlyphWide(glyph string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Metrics == nil {
		return false, ErrUnsupported
	}
	for _, r := range glyph {
		if r >= 0x1100 {
			return true, nil
		}
	}
	return false, nil
}

func (n *Null) UpdateFont(desired core.FontDesc, dpi int) (core.FontMetrics, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("update-font")
	if n.Metrics == nil {
		return core.FontMetrics{}, ErrUnsupported
	}
	return *n.Metrics, nil
}

func (n *Null) UpdateDPI(dpi int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("update-dpi")
	return nil
}

func (n *Null) SetWindowSize(px core.PixelSize) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("set-window-size")
	return nil
}

func (n *Null) PrepareForTeardown() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("prepare-for-teardown")
	n.Teardowns++
	return n.WantsFinalRepaint, nil
}

func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("close")
	n.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (n *Null) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// OpLog returns a copy of the recorded operation order.
func (n *Null) OpLog() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ops := make([]string, len(n.Ops))
	copy(ops, n.Ops)
	return ops
}
