package backend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dshills/termpaint/internal/render/core"
)

func TestVTIdleWithoutDamage(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	ready, err := v.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if ready {
		t.Error("BeginFrame() ready = true with no damage, want false")
	}
}

func TestVTPaintRowEmitsCUPAndText(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	if err := v.Invalidate(core.Rect{Top: 2, Left: 5, Bottom: 3, Right: 10}); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	ready, err := v.BeginFrame()
	if err != nil || !ready {
		t.Fatalf("BeginFrame() = (%v, %v), want (true, nil)", ready, err)
	}
	if err := v.UpdateDrawingColors(core.RGB(1, 2, 3), core.ColorDefault, 0, false, false); err != nil {
		t.Fatalf("UpdateDrawingColors() error = %v", err)
	}
	if err := v.PaintRow(core.RowSegment{
		Runes:  []rune("hello"),
		Widths: []int{1, 1, 1, 1, 1},
		Target: core.Point{Row: 2, Col: 5},
	}); err != nil {
		t.Fatalf("PaintRow() error = %v", err)
	}
	if err := v.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if err := v.Present(); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\x1b[3;6H") {
		t.Errorf("output %q missing cursor position for row 2 col 5", out)
	}
	if !strings.Contains(out, ";38;2;1;2;3m") {
		t.Errorf("output %q missing truecolor SGR", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("output %q missing text", out)
	}
}

func TestVTIndexedColorSGR(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	if err := v.UpdateDrawingColors(core.Palette(13), core.ColorDefault, 0, true, false); err != nil {
		t.Fatalf("UpdateDrawingColors() error = %v", err)
	}
	v.Invalidate(core.RectFromSize(0, 0, 1, 1))
	v.PaintRow(core.RowSegment{Runes: []rune("x"), Widths: []int{1}, Target: core.Point{}})
	v.Present()

	out := buf.String()
	if !strings.Contains(out, "\x1b[0;1;38;5;13m") {
		t.Errorf("output %q missing bold indexed SGR", out)
	}
}

func TestVTScrollFrameEmitsScrollEscape(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	if err := v.InvalidateScroll(core.Delta{Rows: -3}); err != nil {
		t.Fatalf("InvalidateScroll() error = %v", err)
	}
	if err := v.ScrollFrame(); err != nil {
		t.Fatalf("ScrollFrame() error = %v", err)
	}
	v.Present()

	if !strings.Contains(buf.String(), "\x1b[3S") {
		t.Errorf("output %q missing scroll-up escape", buf.String())
	}
	// The rows that slid in at the bottom are left dirty for repainting.
	dirty := v.DirtyRect()
	want := core.Rect{Top: 21, Left: 0, Bottom: 24, Right: 80}
	if !dirty.Equals(want) {
		t.Errorf("DirtyRect() = %+v, want %+v", dirty, want)
	}
}

func TestVTScrollOverflowRepaintsEverything(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	v.InvalidateScroll(core.Delta{Rows: -30})
	if err := v.ScrollFrame(); err != nil {
		t.Fatalf("ScrollFrame() error = %v", err)
	}

	want := core.Rect{Top: 0, Left: 0, Bottom: 24, Right: 80}
	if !v.DirtyRect().Equals(want) {
		t.Errorf("DirtyRect() = %+v, want full viewport %+v", v.DirtyRect(), want)
	}
}

func TestVTTitleDedup(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	v.UpdateTitle("demo")
	v.UpdateTitle("demo")
	v.Present()

	if got := strings.Count(buf.String(), "\x1b]2;demo\a"); got != 1 {
		t.Errorf("title escape emitted %d times, want 1", got)
	}
}

func TestVTCursorVisibility(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	v.PaintCursor(core.CursorState{Visible: false})
	v.PaintCursor(core.CursorState{
		Visible:  true,
		Shape:    core.CursorVerticalBar,
		Position: core.Point{Row: 1, Col: 1},
	})
	v.Present()

	out := buf.String()
	if !strings.Contains(out, "\x1b[?25l") {
		t.Errorf("output %q missing hide-cursor", out)
	}
	if !strings.Contains(out, "\x1b[?25h") {
		t.Errorf("output %q missing show-cursor", out)
	}
	if !strings.Contains(out, "\x1b[6 q") {
		t.Errorf("output %q missing DECSCUSR for vertical bar", out)
	}
}

func TestVTTrimLeftOffEdge(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	v.Invalidate(core.RectFromSize(0, 0, 1, 2))
	// A wide glyph whose lead half is scrolled off the left edge.
	err := v.PaintRow(core.RowSegment{
		Runes:    []rune{'漢', 'a'},
		Widths:   []int{2, 1},
		Target:   core.Point{Row: 0, Col: -1},
		TrimLeft: true,
	})
	if err != nil {
		t.Fatalf("PaintRow() error = %v", err)
	}
	v.Present()

	out := buf.String()
	if strings.Contains(out, "漢") {
		t.Errorf("output %q draws a glyph that is half off-screen", out)
	}
	if !strings.Contains(out, "a") {
		t.Errorf("output %q missing the rest of the segment", out)
	}
}

func TestVTFontQueriesUnsupported(t *testing.T) {
	v := NewVT(&bytes.Buffer{}, 80, 24)

	if _, err := v.FontSize(); err != ErrUnsupported {
		t.Errorf("FontSize() error = %v, want ErrUnsupported", err)
	}
	if _, err := v.ProposedFont(core.FontDesc{}, 96); err != ErrUnsupported {
		t.Errorf("ProposedFont() error = %v, want ErrUnsupported", err)
	}
	if _, err := v.IsGlyphWide("漢"); err != ErrUnsupported {
		t.Errorf("IsGlyphWide() error = %v, want ErrUnsupported", err)
	}
}

func TestVTCloseResetsAndRefuses(t *testing.T) {
	var buf bytes.Buffer
	v := NewVT(&buf, 80, 24)

	if err := v.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[0m\x1b[?25h") {
		t.Errorf("output %q missing reset on close", buf.String())
	}
	if _, err := v.BeginFrame(); err == nil {
		t.Error("BeginFrame() after Close error = nil, want error")
	}
	// Second close is a no-op.
	if err := v.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
