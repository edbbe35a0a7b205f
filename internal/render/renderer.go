package render

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/termpaint/internal/render/backend"
	"github.com/dshills/termpaint/internal/render/core"
)

// ErrNoFontMetrics is reported when no attached head can answer a font
// query unambiguously. The caller decides the fallback.
var ErrNoFontMetrics = errors.New("render: no head reports font metrics")

// Options configures the renderer.
type Options struct {
	// FrameInterval is the minimum spacing between scheduled paints.
	// Zero means the default (8ms).
	FrameInterval time.Duration
	// Logger receives per-head and per-row failures. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the renderer defaults.
func DefaultOptions() Options {
	return Options{FrameInterval: 8 * time.Millisecond}
}

// attachedHead pairs a head with the registration id used in logs.
type attachedHead struct {
	id   string
	head backend.Backend
}

// Renderer orchestrates repainting: it owns the attached heads and the
// paint scheduler, keeps the frame-diff state (previous viewport, previous
// selection), and exposes the Trigger* notification surface the rest of
// the system calls when content changes.
//
// Every Trigger* operation computes the affected region once, forwards an
// invalidation to every head, and wakes the scheduler. None of them paint
// directly, except TriggerCircling and TriggerTeardown which run
// synchronous frames for heads that request one.
//
// Trigger* operations read provider state (viewport, cursor, selection)
// without acquiring the content lock; mutators call them at points where
// that state is stable, typically while still holding the lock themselves.
type Renderer struct {
	content ContentProvider
	logger  *slog.Logger
	sched   *Scheduler

	mu       sync.Mutex
	backends []attachedHead
	tornDown bool

	diffMu        sync.Mutex
	prevViewport  core.Rect
	prevSelection []core.Rect
}

// New creates a renderer over the given content provider and attaches the
// given heads. The paint worker starts immediately but stays disabled
// until EnablePainting.
func New(content ContentProvider, opts Options, heads ...backend.Backend) (*Renderer, error) {
	if content == nil {
		return nil, errors.New("render: nil content provider")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		content: content,
		logger:  logger,
		// Seed the scroll diff so the first frame is not mistaken for a
		// viewport move.
		prevViewport: content.Viewport(),
	}
	for _, h := range heads {
		if err := r.AddBackend(h); err != nil {
			return nil, err
		}
	}
	r.sched = NewScheduler(r, opts.FrameInterval, logger)
	return r, nil
}

// AddBackend attaches another output head. The renderer takes exclusive
// ownership; the head is closed exactly once, at teardown.
func (r *Renderer) AddBackend(head backend.Backend) error {
	if head == nil {
		return errors.New("render: nil backend")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tornDown {
		return errors.New("render: renderer is torn down")
	}
	r.backends = append(r.backends, attachedHead{id: uuid.NewString(), head: head})
	return nil
}

// heads snapshots the attached heads.
func (r *Renderer) heads() []attachedHead {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]attachedHead, len(r.backends))
	copy(out, r.backends)
	return out
}

// EnablePainting lets the scheduler start turning signals into frames.
func (r *Renderer) EnablePainting() {
	r.sched.EnablePainting()
}

// WaitForPaintCompletionAndDisable blocks until any in-flight paint
// finishes or timeout elapses, then disables the scheduler. Used for
// resize/DPI settling. A negative timeout waits indefinitely.
func (r *Renderer) WaitForPaintCompletionAndDisable(timeout time.Duration) {
	r.sched.WaitForPaintCompletionAndDisable(timeout)
}

func (r *Renderer) notifyPaint() {
	r.sched.NotifyPaint()
}

// PaintFrame paints one frame on every attached head. A failure on one
// head is logged and does not keep the remaining heads from painting.
// This is the scheduler's entry point; Trigger* operations never call it.
func (r *Renderer) PaintFrame() error {
	for _, h := range r.heads() {
		if err := r.paintFrameForBackend(h.head); err != nil {
			r.logger.Warn("frame failed", "backend", h.id, "error", err)
		}
	}
	return nil
}

// TriggerRedraw marks a buffer-space region for repaint. Regions outside
// the viewport are dropped.
func (r *Renderer) TriggerRedraw(region core.Rect) {
	view := r.content.Viewport()
	clipped := region.Intersect(view)
	if clipped.IsEmpty() {
		return
	}
	local := clipped.Translate(-view.Top, -view.Left)
	for _, h := range r.heads() {
		if err := h.head.Invalidate(local); err != nil {
			r.logger.Warn("invalidate", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerRedrawAt marks a single buffer cell for repaint.
func (r *Renderer) TriggerRedrawAt(p core.Point) {
	r.TriggerRedraw(core.RectAt(p))
}

// TriggerRedrawCursor marks the cell under the cursor for repaint, letting
// heads distinguish cursor movement from content damage. If the cursor
// sits on the lead half of a wide glyph, the adjacent cell is invalidated
// too.
func (r *Renderer) TriggerRedrawCursor(p core.Point) {
	view := r.content.Viewport()
	if !view.Contains(p) {
		return
	}
	local := p.Translate(-view.Top, -view.Left)
	double := r.content.Cursor().DoubleWidth
	for _, h := range r.heads() {
		if err := h.head.InvalidateCursor(local); err != nil {
			r.logger.Warn("invalidate cursor", "backend", h.id, "error", err)
		}
		if double {
			if err := h.head.InvalidateCursor(local.Translate(0, 1)); err != nil {
				r.logger.Warn("invalidate cursor", "backend", h.id, "error", err)
			}
		}
	}
	r.notifyPaint()
}

// TriggerRedrawAll marks the whole viewport for repaint. Use sparingly;
// prefer the narrower triggers.
func (r *Renderer) TriggerRedrawAll() {
	for _, h := range r.heads() {
		if err := h.head.InvalidateAll(); err != nil {
			r.logger.Warn("invalidate all", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerSystemRedraw forwards a system-demanded repaint of a pixel region.
func (r *Renderer) TriggerSystemRedraw(px core.PixelRect) {
	for _, h := range r.heads() {
		if err := h.head.InvalidateSystem(px); err != nil {
			r.logger.Warn("invalidate system", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerScroll notifies that the viewport may have moved. The delta is
// computed against the previously observed viewport; nothing is signalled
// if it turns out not to have moved.
func (r *Renderer) TriggerScroll() {
	if r.checkViewportAndScroll() {
		r.notifyPaint()
	}
}

// TriggerScrollDelta notifies that the visible content shifted by delta
// even though the viewport rectangle did not move: the backing store
// rotated underneath it. Heads can shift already-rendered output instead
// of redrawing everything.
func (r *Renderer) TriggerScrollDelta(delta core.Delta) {
	for _, h := range r.heads() {
		if err := h.head.InvalidateScroll(delta); err != nil {
			r.logger.Warn("invalidate scroll", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerCircling warns that the backing store is about to overwrite its
// oldest row. Heads that need the row's current content get a synchronous
// frame on the calling goroutine before this returns.
func (r *Renderer) TriggerCircling() {
	for _, h := range r.heads() {
		wants, err := h.head.InvalidateCircling()
		if err != nil {
			r.logger.Warn("invalidate circling", "backend", h.id, "error", err)
			continue
		}
		if wants {
			if err := r.paintFrameForBackend(h.head); err != nil {
				r.logger.Warn("circling frame failed", "backend", h.id, "error", err)
			}
		}
	}
}

// TriggerSelection notifies that the selection changed. Both the
// previously rendered rects and the new ones are invalidated, so cells
// leaving the selection are repainted too; repeating the same selection
// invalidates just that selection.
func (r *Renderer) TriggerSelection() {
	rects := r.selectionViewportRects()

	r.diffMu.Lock()
	prev := r.prevSelection
	r.prevSelection = rects
	r.diffMu.Unlock()

	for _, h := range r.heads() {
		if err := h.head.InvalidateSelection(prev); err != nil {
			r.logger.Warn("invalidate selection", "backend", h.id, "error", err)
		}
		if err := h.head.InvalidateSelection(rects); err != nil {
			r.logger.Warn("invalidate selection", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerTitleChange notifies that the title changed.
func (r *Renderer) TriggerTitleChange() {
	title := r.content.Title()
	for _, h := range r.heads() {
		if err := h.head.InvalidateTitle(title); err != nil {
			r.logger.Warn("invalidate title", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
}

// TriggerFontChange applies a font/DPI change to every head and returns
// the metrics of the first head that accepted it.
func (r *Renderer) TriggerFontChange(dpi int, desired core.FontDesc) (core.FontMetrics, error) {
	var chosen core.FontMetrics
	found := false
	for _, h := range r.heads() {
		if err := h.head.UpdateDPI(dpi); err != nil && !errors.Is(err, backend.ErrUnsupported) {
			r.logger.Warn("update dpi", "backend", h.id, "error", err)
		}
		metrics, err := h.head.UpdateFont(desired, dpi)
		switch {
		case err == nil:
			if !found {
				chosen = metrics
				found = true
			}
		case errors.Is(err, backend.ErrUnsupported):
		default:
			r.logger.Warn("update font", "backend", h.id, "error", err)
		}
	}
	r.notifyPaint()
	if !found {
		return core.FontMetrics{}, ErrNoFontMetrics
	}
	return chosen, nil
}

// TriggerTeardown drains any in-flight paint (bounded by timeout, negative
// for no bound), disables the scheduler, gives every head one last chance
// to request a final frame, then destroys the heads. After it returns the
// renderer paints nothing further.
func (r *Renderer) TriggerTeardown(timeout time.Duration) {
	r.mu.Lock()
	if r.tornDown {
		r.mu.Unlock()
		return
	}
	r.tornDown = true
	heads := r.backends
	r.backends = nil
	r.mu.Unlock()

	r.sched.WaitForPaintCompletionAndDisable(timeout)

	for _, h := range heads {
		wants, err := h.head.PrepareForTeardown()
		if err != nil {
			r.logger.Warn("prepare for teardown", "backend", h.id, "error", err)
			continue
		}
		if wants {
			if err := r.paintFrameForBackend(h.head); err != nil {
				r.logger.Warn("final frame failed", "backend", h.id, "error", err)
			}
		}
	}

	for _, h := range heads {
		if err := h.head.Close(); err != nil {
			r.logger.Warn("close backend", "backend", h.id, "error", err)
		}
	}

	r.sched.Close()
}

// FontSize reports the active font's cell footprint from the first head
// that knows it. Hosts should do math in cells wherever possible and only
// convert to pixels at the edges.
func (r *Renderer) FontSize() core.PixelSize {
	for _, h := range r.heads() {
		size, err := h.head.FontSize()
		if err == nil {
			return size
		}
		if !errors.Is(err, backend.ErrUnsupported) {
			r.logger.Warn("font size", "backend", h.id, "error", err)
		}
	}
	return core.PixelSize{W: 1, H: 1}
}

// ProposedFont asks what font would be selected for hypothetical settings,
// for speculative layout calculations. In practice at most two heads are
// attached (a visual head and a passthrough head); the passthrough head
// answers ErrUnsupported and the query resolves by trying both.
func (r *Renderer) ProposedFont(desired core.FontDesc, dpi int) (core.FontMetrics, error) {
	for _, h := range r.heads() {
		metrics, err := h.head.ProposedFont(desired, dpi)
		if err == nil {
			return metrics, nil
		}
		if !errors.Is(err, backend.ErrUnsupported) {
			r.logger.Warn("proposed font", "backend", h.id, "error", err)
		}
	}
	return core.FontMetrics{}, ErrNoFontMetrics
}

// IsGlyphWideByFont reports whether the glyph occupies two columns under
// the active font, according to the first head that can tell.
func (r *Renderer) IsGlyphWideByFont(glyph string) bool {
	for _, h := range r.heads() {
		wide, err := h.head.IsGlyphWide(glyph)
		if err == nil {
			return wide
		}
		if !errors.Is(err, backend.ErrUnsupported) {
			r.logger.Warn("glyph width", "backend", h.id, "error", err)
		}
	}
	return false
}

// checkViewportAndScroll compares the current viewport against the last
// one observed, informs every head of the new rectangle, and issues the
// scroll delta when it moved. Runs once per per-head frame; after the
// first head of a paint cycle the delta is ordinarily zero.
func (r *Renderer) checkViewportAndScroll() bool {
	view := r.content.Viewport()

	r.diffMu.Lock()
	prev := r.prevViewport
	r.prevViewport = view
	r.diffMu.Unlock()

	delta := core.Delta{Rows: prev.Top - view.Top, Cols: prev.Left - view.Left}
	for _, h := range r.heads() {
		if err := h.head.UpdateViewport(view); err != nil {
			r.logger.Warn("update viewport", "backend", h.id, "error", err)
		}
		if !delta.IsZero() {
			if err := h.head.InvalidateScroll(delta); err != nil {
				r.logger.Warn("invalidate scroll", "backend", h.id, "error", err)
			}
		}
	}
	return !delta.IsZero()
}

// selectionViewportRects returns the provider's selection translated to
// viewport-local coordinates.
func (r *Renderer) selectionViewportRects() []core.Rect {
	view := r.content.Viewport()
	src := r.content.SelectionRects()
	rects := make([]core.Rect, 0, len(src))
	for _, rect := range src {
		rects = append(rects, rect.Translate(-view.Top, -view.Left))
	}
	return rects
}
