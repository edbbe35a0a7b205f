// Package backend defines the capability contract output heads implement,
// plus the concrete heads shipped with the repaint engine: a tcell terminal
// head, a VT passthrough head, and an in-memory recording head for tests.
package backend

import (
	"errors"

	"github.com/dshills/termpaint/internal/render/core"
)

// ErrUnsupported is returned by query operations a head cannot answer,
// as opposed to operations that failed. The renderer treats it as "try the
// next head", never as a frame failure.
var ErrUnsupported = errors.New("backend: not supported by this head")

// Backend is a pluggable output head. One renderer drives any number of
// heads; each receives the same invalidations and its own frame pass.
//
// Invalidate* calls accumulate a dirty region between frames. BeginFrame
// snapshots it, DirtyRect reports it, EndFrame clears it. All cell
// coordinates crossing this interface are viewport-local.
type Backend interface {
	// BeginFrame opens a frame. ready=false means there is nothing to
	// paint, which is a normal outcome, not an error.
	BeginFrame() (ready bool, err error)
	// EndFrame closes the frame's bookkeeping. Always called when
	// BeginFrame reported ready, even after mid-frame failures.
	EndFrame() error
	// Present pushes the finished frame to the display. May block (for
	// vsync or a slow sink) and is always called outside the content lock.
	Present() error

	// Invalidate marks a viewport-local cell region dirty.
	Invalidate(region core.Rect) error
	// InvalidateSystem marks a pixel region dirty on behalf of a
	// system-demanded repaint.
	InvalidateSystem(px core.PixelRect) error
	// InvalidateScroll records that the visible content shifted by delta
	// without the underlying cells changing.
	InvalidateScroll(delta core.Delta) error
	// InvalidateCursor marks the cell under the cursor dirty.
	InvalidateCursor(pos core.Point) error
	// InvalidateSelection marks every cell of the given selection rects
	// dirty.
	InvalidateSelection(rects []core.Rect) error
	// InvalidateCircling warns that the backing store is about to rotate
	// its oldest row out. A head that snapshots content answers true to
	// get one synchronous frame before the rotation.
	InvalidateCircling() (wantsRepaint bool, err error)
	// InvalidateAll marks the whole viewport dirty.
	InvalidateAll() error
	// InvalidateTitle records that the title changed.
	InvalidateTitle(title string) error

	// DirtyRect reports the viewport-local region needing redraw in the
	// current frame.
	DirtyRect() core.Rect
	// ViewportInCells converts a pixel rectangle to viewport-local cells.
	ViewportInCells(px core.PixelRect) core.Rect
	// UpdateViewport informs the head of the current buffer-space
	// viewport rectangle.
	UpdateViewport(view core.Rect) error

	// PaintBackground fills the dirty region with the background color.
	PaintBackground() error
	// PaintRow draws one decoded row segment.
	PaintRow(seg core.RowSegment) error
	// PaintGridLines draws box decorations over length columns at target.
	PaintGridLines(lines core.GridLines, color core.Color, length int, target core.Point) error
	// PaintSelection highlights one viewport-local rectangle.
	PaintSelection(rect core.Rect) error
	// PaintCursor draws the cursor.
	PaintCursor(cur core.CursorState) error
	// UpdateTitle pushes the title if it changed since last pushed.
	UpdateTitle(title string) error
	// UpdateDrawingColors sets the colors used by subsequent draws.
	// includeBackground additionally updates the ambient background used
	// by PaintBackground.
	UpdateDrawingColors(fg, bg core.Color, legacy uint16, bold, includeBackground bool) error
	// ScrollFrame applies any pending scroll by reusing already-rendered
	// output instead of redrawing identical cells.
	ScrollFrame() error

	// FontSize reports the pixel footprint of one cell, or ErrUnsupported.
	FontSize() (core.PixelSize, error)
	// ProposedFont answers what font would be chosen for hypothetical
	// settings, without applying it.
	ProposedFont(desired core.FontDesc, dpi int) (core.FontMetrics, error)
	// IsGlyphWide reports whether the glyph renders two columns wide
	// under the active font.
	IsGlyphWide(glyph string) (bool, error)
	// UpdateFont applies a font change and reports the metrics chosen.
	UpdateFont(desired core.FontDesc, dpi int) (core.FontMetrics, error)
	// UpdateDPI applies a DPI change.
	UpdateDPI(dpi int) error
	// SetWindowSize requests a window resize in pixels.
	SetWindowSize(px core.PixelSize) error

	// PrepareForTeardown gives the head a chance to request one final
	// frame before the renderer destroys it.
	PrepareForTeardown() (wantsRepaint bool, err error)
	// Close releases the head's resources. Called exactly once, by the
	// renderer, at teardown.
	Close() error
}
