package render

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dshills/termpaint/internal/render/backend"
	"github.com/dshills/termpaint/internal/render/core"
)

// fakeContent is an in-memory content provider for renderer tests.
type fakeContent struct {
	mu sync.Mutex

	view      core.Rect
	size      core.Size
	rows      []core.Row
	selection []core.Rect
	cursor    core.CursorState
	fg, bg    core.Color
	title     string
	areas     []CompositionArea
	gridLines bool
}

func newFakeContent(cols, rows int) *fakeContent {
	f := &fakeContent{
		size:   core.Size{Cols: cols, Rows: rows},
		view:   core.RectFromSize(0, 0, rows, cols),
		fg:     core.ColorDefault,
		bg:     core.ColorDefault,
		cursor: core.CursorState{Visible: true, HeightPercent: 25},
	}
	f.rows = make([]core.Row, rows)
	for i := range f.rows {
		cells := make([]core.Cell, cols)
		for j := range cells {
			cells[j] = core.BlankCell(core.TextAttr{})
		}
		f.rows[i] = core.Row{Cells: cells}
	}
	return f
}

// setText writes s into a row with the given attribute, one cell per rune.
func (f *fakeContent) setText(row, col int, s string, attr core.TextAttr) {
	for i, r := range []rune(s) {
		if col+i >= f.size.Cols {
			break
		}
		f.rows[row].Cells[col+i] = core.Cell{Glyph: r, Class: core.Single, Attr: attr}
	}
}

// setWide stores a wide glyph as a lead/trail pair at col.
func (f *fakeContent) setWide(row, col int, glyph rune, attr core.TextAttr) {
	f.rows[row].Cells[col] = core.Cell{Glyph: glyph, Class: core.WideLead, Attr: attr}
	f.rows[row].Cells[col+1] = core.Cell{Glyph: glyph, Class: core.WideTrail, Attr: attr}
}

func (f *fakeContent) Lock() { f.mu.Lock() }

func (f *fakeContent) Unlock() { f.mu.Unlock() }

func (f *fakeContent) Viewport() core.Rect { return f.view }

func (f *fakeContent) BufferSize() core.Size { return f.size }

func (f *fakeContent) SelectionRects() []core.Rect { return f.selection }

func (f *fakeContent) Cursor() core.CursorState { return f.cursor }

func (f *fakeContent) DefaultColors() (fg, bg core.Color) { return f.fg, f.bg }

func (f *fakeContent) Title() string { return f.title }

func (f *fakeContent) CompositionAreas() []CompositionArea { return f.areas }

func (f *fakeContent) GridLinesAllowed() bool { return f.gridLines }

func (f *fakeContent) Row(row int) core.Row {
	if row < 0 || row >= len(f.rows) {
		return core.Row{}
	}
	return f.rows[row]
}

func newTestRenderer(t *testing.T, content ContentProvider, heads ...backend.Backend) *Renderer {
	t.Helper()
	r, err := New(content, Options{Logger: slog.Default()}, heads...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { r.TriggerTeardown(time.Second) })
	return r
}

func TestNewRejectsNilContent(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Fatal("New(nil) error = nil, want error")
	}
}

func TestAddBackendRejectsNil(t *testing.T) {
	r := newTestRenderer(t, newFakeContent(10, 4))
	if err := r.AddBackend(nil); err == nil {
		t.Fatal("AddBackend(nil) error = nil, want error")
	}
}

func TestTriggerRedrawClipsToViewport(t *testing.T) {
	content := newFakeContent(100, 50)
	content.view = core.Rect{Top: 10, Left: 5, Bottom: 34, Right: 85}
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	// Straddles the viewport's top-left corner.
	r.TriggerRedraw(core.Rect{Top: 8, Left: 2, Bottom: 12, Right: 7})

	if len(head.InvalidRects) != 1 {
		t.Fatalf("len(InvalidRects) = %d, want 1", len(head.InvalidRects))
	}
	want := core.Rect{Top: 0, Left: 0, Bottom: 2, Right: 2}
	if got := head.InvalidRects[0]; !got.Equals(want) {
		t.Errorf("invalidated rect = %+v, want %+v", got, want)
	}

	// Entirely outside the viewport: dropped before reaching the head.
	r.TriggerRedraw(core.Rect{Top: 0, Left: 0, Bottom: 5, Right: 5})
	if len(head.InvalidRects) != 1 {
		t.Errorf("len(InvalidRects) after off-screen redraw = %d, want 1", len(head.InvalidRects))
	}
}

func TestTriggerRedrawAtSingleCell(t *testing.T) {
	content := newFakeContent(80, 24)
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	r.TriggerRedrawAt(core.Point{Row: 3, Col: 7})

	want := core.Rect{Top: 3, Left: 7, Bottom: 4, Right: 8}
	if len(head.InvalidRects) != 1 || !head.InvalidRects[0].Equals(want) {
		t.Errorf("InvalidRects = %+v, want [%+v]", head.InvalidRects, want)
	}
}

func TestTriggerRedrawCursorWideGlyph(t *testing.T) {
	content := newFakeContent(80, 24)
	content.cursor.Position = core.Point{Row: 2, Col: 4}
	content.cursor.DoubleWidth = true
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	r.TriggerRedrawCursor(core.Point{Row: 2, Col: 4})

	want := []core.Point{{Row: 2, Col: 4}, {Row: 2, Col: 5}}
	if len(head.CursorInvals) != len(want) {
		t.Fatalf("len(CursorInvals) = %d, want %d", len(head.CursorInvals), len(want))
	}
	for i, p := range want {
		if head.CursorInvals[i] != p {
			t.Errorf("CursorInvals[%d] = %+v, want %+v", i, head.CursorInvals[i], p)
		}
	}
}

func TestTriggerRedrawCursorOutsideViewport(t *testing.T) {
	content := newFakeContent(100, 50)
	content.view = core.Rect{Top: 10, Left: 0, Bottom: 34, Right: 80}
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	r.TriggerRedrawCursor(core.Point{Row: 2, Col: 4})

	if len(head.CursorInvals) != 0 {
		t.Errorf("CursorInvals = %+v, want none", head.CursorInvals)
	}
}

func TestTriggerSelectionInvalidatesOldAndNew(t *testing.T) {
	content := newFakeContent(80, 24)
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	selA := []core.Rect{{Top: 1, Left: 0, Bottom: 2, Right: 10}}
	selB := []core.Rect{{Top: 5, Left: 3, Bottom: 6, Right: 8}}

	content.selection = selA
	r.TriggerSelection()
	content.selection = selB
	r.TriggerSelection()

	if len(head.SelectionInvals) != 4 {
		t.Fatalf("len(SelectionInvals) = %d, want 4", len(head.SelectionInvals))
	}
	if len(head.SelectionInvals[0]) != 0 {
		t.Errorf("first previous selection = %+v, want empty", head.SelectionInvals[0])
	}
	if got := head.SelectionInvals[1]; len(got) != 1 || !got[0].Equals(selA[0]) {
		t.Errorf("first new selection = %+v, want %+v", got, selA)
	}
	if got := head.SelectionInvals[2]; len(got) != 1 || !got[0].Equals(selA[0]) {
		t.Errorf("second previous selection = %+v, want %+v", got, selA)
	}
	if got := head.SelectionInvals[3]; len(got) != 1 || !got[0].Equals(selB[0]) {
		t.Errorf("second new selection = %+v, want %+v", got, selB)
	}
}

func TestTriggerSelectionRepeatedIsIdempotent(t *testing.T) {
	content := newFakeContent(80, 24)
	content.selection = []core.Rect{{Top: 1, Left: 0, Bottom: 2, Right: 10}}
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	r.TriggerSelection()
	r.TriggerSelection()

	// The second trigger invalidates the same spans twice; nothing beyond
	// the selection itself is touched.
	last := head.SelectionInvals[len(head.SelectionInvals)-1]
	prev := head.SelectionInvals[len(head.SelectionInvals)-2]
	if len(last) != 1 || len(prev) != 1 || !last[0].Equals(prev[0]) {
		t.Errorf("repeated selection invalidated %+v then %+v, want identical", prev, last)
	}
}

func TestTriggerScrollEmitsDeltaExactlyOnce(t *testing.T) {
	content := newFakeContent(80, 48)
	content.view = core.RectFromSize(0, 0, 24, 80)
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	// Observe the initial viewport.
	r.TriggerScroll()
	if len(head.ScrollDeltas) != 0 {
		t.Fatalf("ScrollDeltas after initial observation = %+v, want none", head.ScrollDeltas)
	}

	content.view = core.RectFromSize(3, 0, 24, 80)
	r.TriggerScroll()

	want := core.Delta{Rows: -3}
	if len(head.ScrollDeltas) != 1 || head.ScrollDeltas[0] != want {
		t.Fatalf("ScrollDeltas = %+v, want [%+v]", head.ScrollDeltas, want)
	}

	// Unchanged viewport: no further scroll invalidation.
	r.TriggerScroll()
	if len(head.ScrollDeltas) != 1 {
		t.Errorf("ScrollDeltas after no-op scroll = %+v, want exactly one", head.ScrollDeltas)
	}
}

func TestTriggerScrollDeltaForwardsToAllHeads(t *testing.T) {
	content := newFakeContent(80, 24)
	head1 := backend.NewNull(80, 24)
	head2 := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head1, head2)

	delta := core.Delta{Rows: -2}
	r.TriggerScrollDelta(delta)

	for i, h := range []*backend.Null{head1, head2} {
		if len(h.ScrollDeltas) != 1 || h.ScrollDeltas[0] != delta {
			t.Errorf("head %d ScrollDeltas = %+v, want [%+v]", i, h.ScrollDeltas, delta)
		}
	}
}

func TestTriggerCirclingPaintsOnlyRequestingHeads(t *testing.T) {
	content := newFakeContent(80, 24)
	wanting := backend.NewNull(80, 24)
	wanting.WantsCirclingRepaint = true
	indifferent := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, wanting, indifferent)

	r.TriggerCircling()

	if wanting.Presents != 1 {
		t.Errorf("wanting head Presents = %d, want 1", wanting.Presents)
	}
	if indifferent.Presents != 0 {
		t.Errorf("indifferent head Presents = %d, want 0", indifferent.Presents)
	}
}

func TestPaintFrameIsolatesHeadFailure(t *testing.T) {
	content := newFakeContent(80, 24)
	failing := backend.NewNull(80, 24)
	failing.BeginErr = errors.New("device lost")
	healthy := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, failing, healthy)

	if err := r.PaintFrame(); err != nil {
		t.Fatalf("PaintFrame() error = %v, want nil", err)
	}
	if healthy.Presents != 1 {
		t.Errorf("healthy head Presents = %d, want 1", healthy.Presents)
	}
	if failing.Presents != 0 {
		t.Errorf("failing head Presents = %d, want 0", failing.Presents)
	}
}

func TestTriggerTeardown(t *testing.T) {
	content := newFakeContent(80, 24)
	wanting := backend.NewNull(80, 24)
	wanting.WantsFinalRepaint = true
	indifferent := backend.NewNull(80, 24)

	r, err := New(content, DefaultOptions(), wanting, indifferent)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.EnablePainting()

	r.TriggerTeardown(time.Second)

	if r.sched.Enabled() {
		t.Error("scheduler still enabled after teardown")
	}
	for i, h := range []*backend.Null{wanting, indifferent} {
		if h.Teardowns != 1 {
			t.Errorf("head %d Teardowns = %d, want 1", i, h.Teardowns)
		}
		if !h.Closed() {
			t.Errorf("head %d not closed after teardown", i)
		}
	}
	if wanting.Presents != 1 {
		t.Errorf("wanting head Presents = %d, want 1 final frame", wanting.Presents)
	}
	if indifferent.Presents != 0 {
		t.Errorf("indifferent head Presents = %d, want 0", indifferent.Presents)
	}

	// Teardown is idempotent.
	r.TriggerTeardown(time.Second)
	if wanting.Teardowns != 1 {
		t.Errorf("Teardowns after second teardown = %d, want 1", wanting.Teardowns)
	}
}

func TestFontQueriesFallThroughUnsupportedHeads(t *testing.T) {
	content := newFakeContent(80, 24)
	blind := backend.NewNull(80, 24) // no metrics: every query unsupported
	sighted := backend.NewNull(80, 24)
	sighted.Metrics = &core.FontMetrics{
		Family:    "Cascadia Mono",
		PointSize: 12,
		CellSize:  core.PixelSize{W: 8, H: 16},
	}
	r := newTestRenderer(t, content, blind, sighted)

	if got := r.FontSize(); got != sighted.Metrics.CellSize {
		t.Errorf("FontSize() = %+v, want %+v", got, sighted.Metrics.CellSize)
	}
	metrics, err := r.ProposedFont(core.FontDesc{Family: "Cascadia Mono", PointSize: 12}, 96)
	if err != nil {
		t.Fatalf("ProposedFont() error = %v", err)
	}
	if metrics.Family != "Cascadia Mono" {
		t.Errorf("ProposedFont().Family = %q, want %q", metrics.Family, "Cascadia Mono")
	}
	if !r.IsGlyphWideByFont("漢") {
		t.Error("IsGlyphWideByFont(wide glyph) = false, want true")
	}
}

func TestFontQueriesWithNoCapableHead(t *testing.T) {
	content := newFakeContent(80, 24)
	blind := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, blind)

	if got, want := r.FontSize(), (core.PixelSize{W: 1, H: 1}); got != want {
		t.Errorf("FontSize() = %+v, want fallback %+v", got, want)
	}
	if _, err := r.ProposedFont(core.FontDesc{}, 96); !errors.Is(err, ErrNoFontMetrics) {
		t.Errorf("ProposedFont() error = %v, want ErrNoFontMetrics", err)
	}
	if r.IsGlyphWideByFont("漢") {
		t.Error("IsGlyphWideByFont() = true with no capable head, want false")
	}
}

func TestTriggerFontChangeReturnsFirstAcceptedMetrics(t *testing.T) {
	content := newFakeContent(80, 24)
	blind := backend.NewNull(80, 24)
	sighted := backend.NewNull(80, 24)
	sighted.Metrics = &core.FontMetrics{Family: "Consolas", PointSize: 11, CellSize: core.PixelSize{W: 7, H: 14}}
	r := newTestRenderer(t, content, blind, sighted)

	metrics, err := r.TriggerFontChange(96, core.FontDesc{Family: "Consolas", PointSize: 11})
	if err != nil {
		t.Fatalf("TriggerFontChange() error = %v", err)
	}
	if metrics.Family != "Consolas" {
		t.Errorf("metrics.Family = %q, want %q", metrics.Family, "Consolas")
	}
}

func TestTriggerTitleChangeForwardsTitle(t *testing.T) {
	content := newFakeContent(80, 24)
	content.title = "hello"
	head := backend.NewNull(80, 24)
	r := newTestRenderer(t, content, head)

	r.TriggerTitleChange()
	r.PaintFrame()

	if len(head.Titles) != 1 || head.Titles[0] != "hello" {
		t.Errorf("Titles = %+v, want [hello]", head.Titles)
	}
}
