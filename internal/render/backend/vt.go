package backend

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dshills/termpaint/internal/render/core"
)

var _ Backend = (*VT)(nil)

// VT is the passthrough head: it re-emits the viewport as a VT escape
// stream on an io.Writer, for piping frames to another terminal, a
// recording, or a serial line. It answers all font queries with
// ErrUnsupported; the renderer falls through to the visual head for those.
type VT struct {
	mu sync.Mutex

	out    *bufio.Writer
	closer io.Closer

	viewport      core.Rect
	dirty         core.Rect
	pendingScroll core.Delta
	titleDirty    bool
	pushedTitle   string

	sgr       string
	backSGR   string
	cursorOff bool
	closed    bool
}

// NewVT creates a passthrough head writing to w, presenting a cols x rows
// viewport. If w is also an io.Closer it is closed on teardown.
func NewVT(w io.Writer, cols, rows int) *VT {
	closer, _ := w.(io.Closer)
	return &VT{
		out:      bufio.NewWriter(w),
		closer:   closer,
		viewport: core.RectFromSize(0, 0, rows, cols),
		sgr:      "\x1b[0m",
		backSGR:  "\x1b[0m",
	}
}

func (v *VT) localBounds() core.Rect {
	return core.RectFromSize(0, 0, v.viewport.Height(), v.viewport.Width())
}

func (v *VT) markDirty(region core.Rect) {
	v.dirty = v.dirty.Union(region.Intersect(v.localBounds()))
}

func (v *VT) BeginFrame() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false, fmt.Errorf("vt head: begin frame after close")
	}
	if v.dirty.IsEmpty() && v.pendingScroll.IsZero() && !v.titleDirty {
		return false, nil
	}
	return true, nil
}

func (v *VT) EndFrame() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirty = core.Rect{}
	v.titleDirty = false
	return nil
}

func (v *VT) Present() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	// Flushing is the blocking part of this head; the renderer has
	// already dropped the content lock when it calls Present.
	if err := v.out.Flush(); err != nil {
		return fmt.Errorf("vt head: flush: %w", err)
	}
	return nil
}

func (v *VT) Invalidate(region core.Rect) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markDirty(region)
	return nil
}

func (v *VT) InvalidateSystem(px core.PixelRect) error {
	// A stream has no pixels; treat a system repaint as full damage.
	return v.InvalidateAll()
}

func (v *VT) InvalidateScroll(delta core.Delta) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if delta.IsZero() {
		return nil
	}
	v.pendingScroll = core.Delta{
		Rows: v.pendingScroll.Rows + delta.Rows,
		Cols: v.pendingScroll.Cols + delta.Cols,
	}
	return nil
}

func (v *VT) InvalidateCursor(pos core.Point) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markDirty(core.RectAt(pos))
	return nil
}

func (v *VT) InvalidateSelection(rects []core.Rect) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range rects {
		v.markDirty(r)
	}
	return nil
}

func (v *VT) InvalidateCircling() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// Flush pending damage before the backing store rotates the rows it
	// refers to out from under us.
	wants := !v.dirty.IsEmpty() || !v.pendingScroll.IsZero()
	return wants, nil
}

func (v *VT) InvalidateAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirty = v.localBounds()
	return nil
}

func (v *VT) InvalidateTitle(string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.titleDirty = true
	return nil
}

func (v *VT) DirtyRect() core.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty
}

func (v *VT) ViewportInCells(px core.PixelRect) core.Rect {
	// No pixel geometry on a stream; a pixel rect covers everything.
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.localBounds()
}

func (v *VT) UpdateViewport(view core.Rect) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !view.Equals(v.viewport) {
		v.viewport = view
		v.dirty = v.localBounds()
	}
	return nil
}

func (v *VT) PaintBackground() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	full := v.dirty.Left == 0 && v.dirty.Right >= v.viewport.Width()
	for row := v.dirty.Top; row < v.dirty.Bottom; row++ {
		v.moveTo(row, v.dirty.Left)
		v.out.WriteString(v.backSGR)
		if full {
			v.out.WriteString("\x1b[2K")
			continue
		}
		v.out.WriteString(strings.Repeat(" ", v.dirty.Width()))
	}
	return nil
}

func (v *VT) PaintRow(seg core.RowSegment) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	col := seg.Target.Col
	runes := seg.Runes
	widths := seg.Widths
	if seg.TrimLeft && col < 0 && len(runes) > 0 {
		// The lead half sits left of the viewport; the stream cannot
		// strike a half glyph, so stand a space in for the right half.
		v.moveTo(seg.Target.Row, 0)
		v.out.WriteString(v.sgr)
		v.out.WriteRune(' ')
		col += widths[0]
		runes = runes[1:]
		widths = widths[1:]
		if len(runes) == 0 {
			return nil
		}
	}
	v.moveTo(seg.Target.Row, col)
	v.out.WriteString(v.sgr)
	for _, r := range runes {
		v.out.WriteRune(r)
	}
	return nil
}

func (v *VT) PaintGridLines(lines core.GridLines, color core.Color, length int, target core.Point) error {
	// The downstream terminal draws its own decorations; grid lines do
	// not survive a plain text stream.
	return nil
}

func (v *VT) PaintSelection(rect core.Rect) error {
	// Selection presentation belongs to whatever consumes the stream.
	return nil
}

func (v *VT) PaintCursor(cur core.CursorState) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !cur.Visible {
		v.out.WriteString("\x1b[?25l")
		v.cursorOff = true
		return nil
	}
	if v.cursorOff {
		v.out.WriteString("\x1b[?25h")
		v.cursorOff = false
	}
	fmt.Fprintf(v.out, "\x1b[%d q", decscusr(cur.Shape))
	v.moveTo(cur.Position.Row, cur.Position.Col)
	return nil
}

func (v *VT) UpdateTitle(title string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if title == v.pushedTitle {
		return nil
	}
	fmt.Fprintf(v.out, "\x1b]2;%s\a", title)
	v.pushedTitle = title
	return nil
}

func (v *VT) UpdateDrawingColors(fg, bg core.Color, _ uint16, bold, includeBackground bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var b strings.Builder
	b.WriteString("\x1b[0")
	if bold {
		b.WriteString(";1")
	}
	writeSGRColor(&b, fg, 38)
	writeSGRColor(&b, bg, 48)
	b.WriteString("m")
	v.sgr = b.String()
	if includeBackground {
		var back strings.Builder
		back.WriteString("\x1b[0")
		writeSGRColor(&back, bg, 48)
		back.WriteString("m")
		v.backSGR = back.String()
	}
	return nil
}

func (v *VT) ScrollFrame() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	d := v.pendingScroll
	v.pendingScroll = core.Delta{}
	if d.IsZero() {
		return nil
	}
	if d.Cols != 0 {
		// Horizontal shifts have no cheap escape; repaint everything.
		v.dirty = v.localBounds()
		return nil
	}
	rows := v.viewport.Height()
	if d.Rows <= -rows || d.Rows >= rows {
		v.dirty = v.localBounds()
		return nil
	}
	if d.Rows < 0 {
		// Content moved up: scroll the region and repaint the rows that
		// slid in at the bottom.
		fmt.Fprintf(v.out, "\x1b[%dS", -d.Rows)
		v.markDirty(core.Rect{Top: rows + d.Rows, Left: 0, Bottom: rows, Right: v.viewport.Width()})
	} else {
		fmt.Fprintf(v.out, "\x1b[%dT", d.Rows)
		v.markDirty(core.Rect{Top: 0, Left: 0, Bottom: d.Rows, Right: v.viewport.Width()})
	}
	return nil
}

func (v *VT) FontSize() (core.PixelSize, error) {
	return core.PixelSize{}, ErrUnsupported
}

func (v *VT) ProposedFont(core.FontDesc, int) (core.FontMetrics, error) {
	return core.FontMetrics{}, ErrUnsupported
}

func (v *VT) IsGlyphWide(string) (bool, error) {
	return false, ErrUnsupported
}

func (v *VT) UpdateFont(core.FontDesc, int) (core.FontMetrics, error) {
	return core.FontMetrics{}, ErrUnsupported
}

func (v *VT) UpdateDPI(int) error {
	return nil
}

func (v *VT) SetWindowSize(core.PixelSize) error {
	return ErrUnsupported
}

func (v *VT) PrepareForTeardown() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// One last frame flushes whatever the consumer has not seen yet.
	return true, nil
}

func (v *VT) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.out.WriteString("\x1b[0m\x1b[?25h")
	if err := v.out.Flush(); err != nil {
		return err
	}
	if v.closer != nil {
		return v.closer.Close()
	}
	return nil
}

// moveTo emits a 1-based cursor position for a 0-based viewport cell.
func (v *VT) moveTo(row, col int) {
	fmt.Fprintf(v.out, "\x1b[%d;%dH", row+1, col+1)
}

// writeSGRColor appends the SGR parameters selecting c on the given plane
// (38 foreground, 48 background). Default colors emit nothing; SGR 0 has
// already reset both planes.
func writeSGRColor(b *strings.Builder, c core.Color, plane int) {
	switch {
	case c.Default:
	case c.Indexed:
		fmt.Fprintf(b, ";%d;5;%d", plane, c.R)
	default:
		fmt.Fprintf(b, ";%d;2;%d;%d;%d", plane, c.R, c.G, c.B)
	}
}

// decscusr maps a cursor shape to its DECSCUSR parameter.
func decscusr(shape core.CursorShape) int {
	switch shape {
	case core.CursorVerticalBar:
		return 6
	case core.CursorUnderscore:
		return 4
	case core.CursorEmptyBox, core.CursorFullBox:
		return 2
	default:
		return 2
	}
}
