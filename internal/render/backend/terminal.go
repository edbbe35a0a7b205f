package backend

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/termpaint/internal/render/core"
)

// Default nominal cell footprint, used until the host pushes a font.
const (
	defaultPointSize = 12
	defaultDPI       = 96
)

var _ Backend = (*Terminal)(nil)

// Terminal is the visual head: it draws cells into a tcell screen and
// presents them with a single synchronized flush per frame.
type Terminal struct {
	mu sync.Mutex

	screen tcell.Screen

	viewport      core.Rect
	dirty         core.Rect
	pendingScroll core.Delta
	titleDirty    bool
	pushedTitle   string

	drawStyle tcell.Style
	backStyle tcell.Style
	frameFg   core.Color
	frameBg   core.Color

	font core.FontMetrics
	dpi  int

	closed bool
}

// NewTerminal creates and initializes a terminal head on the controlling
// tty.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return NewTerminalWithScreen(screen), nil
}

// NewTerminalWithScreen wraps an already-initialized tcell screen. Used by
// tests with tcell's simulation screen.
func NewTerminalWithScreen(screen tcell.Screen) *Terminal {
	cols, rows := screen.Size()
	return &Terminal{
		screen:    screen,
		viewport:  core.RectFromSize(0, 0, rows, cols),
		drawStyle: tcell.StyleDefault,
		backStyle: tcell.StyleDefault,
		frameFg:   core.ColorDefault,
		frameBg:   core.ColorDefault,
		dpi:       defaultDPI,
		font:      fontFor(core.FontDesc{PointSize: defaultPointSize}, defaultDPI),
	}
}

func (t *Terminal) localBounds() core.Rect {
	return core.RectFromSize(0, 0, t.viewport.Height(), t.viewport.Width())
}

func (t *Terminal) markDirty(region core.Rect) {
	t.dirty = t.dirty.Union(region.Intersect(t.localBounds()))
}

func (t *Terminal) BeginFrame() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dirty.IsEmpty() && t.pendingScroll.IsZero() && !t.titleDirty {
		return false, nil
	}
	return true, nil
}

func (t *Terminal) EndFrame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = core.Rect{}
	t.titleDirty = false
	return nil
}

func (t *Terminal) Present() error {
	t.mu.Lock()
	screen := t.screen
	t.mu.Unlock()

	// Show may block on terminal I/O; the renderer calls Present outside
	// the content lock for exactly that reason, so don't hold our own
	// lock across it either.
	screen.Show()
	return nil
}

func (t *Terminal) Invalidate(region core.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markDirty(region)
	return nil
}

func (t *Terminal) InvalidateSystem(px core.PixelRect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markDirty(t.cellsFromPixels(px))
	return nil
}

func (t *Terminal) InvalidateScroll(delta core.Delta) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if delta.IsZero() {
		return nil
	}
	t.pendingScroll = core.Delta{
		Rows: t.pendingScroll.Rows + delta.Rows,
		Cols: t.pendingScroll.Cols + delta.Cols,
	}
	return nil
}

func (t *Terminal) InvalidateCursor(pos core.Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markDirty(core.RectAt(pos))
	return nil
}

func (t *Terminal) InvalidateSelection(rects []core.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range rects {
		t.markDirty(r)
	}
	return nil
}

func (t *Terminal) InvalidateCircling() (bool, error) {
	// The screen keeps no history; rotation of the backing store needs no
	// snapshot frame here.
	return false, nil
}

func (t *Terminal) InvalidateAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = t.localBounds()
	return nil
}

func (t *Terminal) InvalidateTitle(string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titleDirty = true
	return nil
}

func (t *Terminal) DirtyRect() core.Rect {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

func (t *Terminal) ViewportInCells(px core.PixelRect) core.Rect {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cellsFromPixels(px)
}

func (t *Terminal) cellsFromPixels(px core.PixelRect) core.Rect {
	cw, ch := t.font.CellSize.W, t.font.CellSize.H
	if cw <= 0 {
		cw = 1
	}
	if ch <= 0 {
		ch = 1
	}
	top := px.Y / ch
	left := px.X / cw
	bottom := (px.Y + px.H + ch - 1) / ch
	right := (px.X + px.W + cw - 1) / cw
	return core.Rect{Top: top, Left: left, Bottom: bottom, Right: right}
}

func (t *Terminal) UpdateViewport(view core.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !view.Equals(t.viewport) {
		t.viewport = view
		t.dirty = t.localBounds()
	}
	return nil
}

func (t *Terminal) PaintBackground() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for row := t.dirty.Top; row < t.dirty.Bottom; row++ {
		for col := t.dirty.Left; col < t.dirty.Right; col++ {
			t.screen.SetContent(col, row, ' ', nil, t.backStyle)
		}
	}
	return nil
}

func (t *Terminal) PaintRow(seg core.RowSegment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	col := seg.Target.Col
	for i, r := range seg.Runes {
		// A negative column only happens for a trim-left wide glyph
		// whose lead half sits off the left edge; the screen clips it.
		if col >= 0 {
			t.screen.SetContent(col, seg.Target.Row, r, nil, t.drawStyle)
		}
		col += seg.Widths[i]
	}
	return nil
}

func (t *Terminal) PaintGridLines(lines core.GridLines, color core.Color, length int, target core.Point) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A cell terminal can only approximate box decorations; bottom lines
	// map to underline, the rest have no cell-level equivalent.
	if !lines.Has(core.LineBottom) {
		return nil
	}
	for i := 0; i < length; i++ {
		mainc, combc, style, _ := t.screen.GetContent(target.Col+i, target.Row)
		t.screen.SetContent(target.Col+i, target.Row, mainc, combc, style.Underline(true))
	}
	return nil
}

func (t *Terminal) PaintSelection(rect core.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tint, tinted := selectionTint(t.frameFg, t.frameBg)
	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			mainc, combc, style, _ := t.screen.GetContent(col, row)
			if tinted {
				style = style.Background(tint)
			} else {
				style = style.Reverse(true)
			}
			t.screen.SetContent(col, row, mainc, combc, style)
		}
	}
	return nil
}

// selectionTint mixes the ambient colors into a highlight background.
// Default and indexed colors cannot be mixed; reverse video stands in.
func selectionTint(fg, bg core.Color) (tcell.Color, bool) {
	if fg.Default || fg.Indexed || bg.Default || bg.Indexed {
		return tcell.ColorDefault, false
	}
	return tcellColor(bg.Blend(fg, 0.35)), true
}

func (t *Terminal) PaintCursor(cur core.CursorState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !cur.Visible {
		t.screen.HideCursor()
		return nil
	}
	style := cursorStyleFor(cur.Shape, cur.HeightPercent)
	if cur.UseColor {
		t.screen.SetCursorStyle(style, tcellColor(cur.Color))
	} else {
		t.screen.SetCursorStyle(style)
	}
	t.screen.ShowCursor(cur.Position.Col, cur.Position.Row)
	return nil
}

func (t *Terminal) UpdateTitle(title string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if title == t.pushedTitle {
		return nil
	}
	t.screen.SetTitle(title)
	t.pushedTitle = title
	return nil
}

func (t *Terminal) UpdateDrawingColors(fg, bg core.Color, _ uint16, bold, includeBackground bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	style := tcell.StyleDefault.Foreground(tcellColor(fg)).Background(tcellColor(bg)).Bold(bold)
	t.drawStyle = style
	if includeBackground {
		t.backStyle = tcell.StyleDefault.Background(tcellColor(bg))
		t.frameFg = fg
		t.frameBg = bg
	}
	return nil
}

func (t *Terminal) ScrollFrame() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pendingScroll.IsZero() {
		return nil
	}
	// tcell offers no region blit, so scrolled frames repaint in full.
	// tcell's own diff against its backing buffer keeps the actual
	// terminal traffic small.
	t.pendingScroll = core.Delta{}
	t.dirty = t.localBounds()
	return nil
}

func (t *Terminal) FontSize() (core.PixelSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.font.CellSize, nil
}

func (t *Terminal) ProposedFont(desired core.FontDesc, dpi int) (core.FontMetrics, error) {
	return fontFor(desired, dpi), nil
}

func (t *Terminal) IsGlyphWide(glyph string) (bool, error) {
	return runewidth.StringWidth(glyph) >= 2, nil
}

func (t *Terminal) UpdateFont(desired core.FontDesc, dpi int) (core.FontMetrics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dpi > 0 {
		t.dpi = dpi
	}
	t.font = fontFor(desired, t.dpi)
	t.dirty = t.localBounds()
	return t.font, nil
}

func (t *Terminal) UpdateDPI(dpi int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dpi > 0 {
		t.dpi = dpi
		t.font.CellSize = cellSizeFor(t.font.PointSize, dpi)
	}
	return nil
}

func (t *Terminal) SetWindowSize(core.PixelSize) error {
	// The hosting terminal owns the window.
	return ErrUnsupported
}

func (t *Terminal) PrepareForTeardown() (bool, error) {
	return false, nil
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.screen.Fini()
	return nil
}

// fontFor resolves a desired font against what a character terminal can
// deliver: the family is accepted verbatim and the cell footprint is
// derived from the point size at the given DPI.
func fontFor(desired core.FontDesc, dpi int) core.FontMetrics {
	pt := desired.PointSize
	if pt <= 0 {
		pt = defaultPointSize
	}
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return core.FontMetrics{
		Family:    desired.Family,
		PointSize: pt,
		CellSize:  cellSizeFor(pt, dpi),
	}
}

func cellSizeFor(pt, dpi int) core.PixelSize {
	h := pt * dpi / 72
	if h < 1 {
		h = 1
	}
	w := (h + 1) / 2
	if w < 1 {
		w = 1
	}
	return core.PixelSize{W: w, H: h}
}

// tcellColor converts a core color to tcell's representation.
func tcellColor(c core.Color) tcell.Color {
	switch {
	case c.Default:
		return tcell.ColorDefault
	case c.Indexed:
		return tcell.PaletteColor(int(c.R))
	default:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
}

// cursorStyleFor maps a cursor shape to the closest tcell cursor style.
func cursorStyleFor(shape core.CursorShape, heightPercent int) tcell.CursorStyle {
	switch shape {
	case core.CursorVerticalBar:
		return tcell.CursorStyleSteadyBar
	case core.CursorUnderscore:
		return tcell.CursorStyleSteadyUnderline
	case core.CursorEmptyBox, core.CursorFullBox:
		return tcell.CursorStyleSteadyBlock
	default:
		// The legacy cursor is a partial-height block; short ones read
		// best as an underline.
		if heightPercent > 0 && heightPercent <= 25 {
			return tcell.CursorStyleSteadyUnderline
		}
		return tcell.CursorStyleSteadyBlock
	}
}
