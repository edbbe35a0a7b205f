package core

// WidthClass describes how many columns a cell's glyph occupies and which
// half of a wide glyph the cell holds.
type WidthClass uint8

const (
	// Single is a normal one-column glyph.
	Single WidthClass = iota
	// WideLead is the left half of a two-column glyph. The cell carries
	// the full glyph.
	WideLead
	// WideTrail is the right half of a two-column glyph. The cell carries
	// a duplicate of the glyph so column arithmetic stays trivial; the
	// duplicate is stripped during row decoding.
	WideTrail
)

// Cell is one grid position: a glyph, its width class and its resolved
// style. Wide glyphs are stored twice, once in the lead cell and once in
// the trail cell.
type Cell struct {
	Glyph rune
	Class WidthClass
	Attr  TextAttr
}

// BlankCell returns a space cell with the given attribute.
func BlankCell(attr TextAttr) Cell {
	return Cell{Glyph: ' ', Class: Single, Attr: attr}
}

// Row is an ordered run of cells plus a flag recording whether the row
// ended in a forced soft wrap. Rows are owned by the content provider and
// read-only to the repaint core.
type Row struct {
	Cells []Cell
	// Wrapped is true when the row's end was a soft wrap rather than a
	// hard newline.
	Wrapped bool
}

// Width returns the number of columns in the row.
func (r Row) Width() int {
	return len(r.Cells)
}

// AttrRunAt returns the resolved attribute at col and the length of the
// maximal run of consecutive cells sharing it. Runs are recomputed on every
// query; nothing is materialized. A column outside the row reports a zero
// run.
func (r Row) AttrRunAt(col int) (TextAttr, int) {
	if col < 0 || col >= len(r.Cells) {
		return TextAttr{}, 0
	}
	attr := r.Cells[col].Attr
	n := 1
	for col+n < len(r.Cells) && r.Cells[col+n].Attr.Equal(attr) {
		n++
	}
	return attr, n
}

// MeasureRight returns one past the rightmost cell that holds visible
// content, skipping trailing default-styled blanks.
func (r Row) MeasureRight() int {
	right := len(r.Cells)
	for right > 0 {
		c := r.Cells[right-1]
		if c.Glyph != ' ' && c.Glyph != 0 {
			break
		}
		if !c.Attr.Equal(TextAttr{}) {
			break
		}
		right--
	}
	return right
}

// RowSegment is the payload of one draw-row call: deduplicated glyph text
// with per-glyph column widths, the viewport-local target, and the flags
// the backend needs to place it correctly.
type RowSegment struct {
	// Runes holds the glyphs to draw; trail halves of wide glyphs have
	// already been stripped.
	Runes []rune
	// Widths holds the column count of each glyph, parallel to Runes.
	Widths []int
	// Target is the viewport-local cell the first glyph lands on. It may
	// sit one column left of the requested region when TrimLeft is set.
	Target Point
	// TrimLeft tells the backend to clip the left half of the first
	// glyph: the caller asked for only the right half of a wide glyph.
	TrimLeft bool
	// Wrapped is true when this segment reaches the measured end of a
	// soft-wrapped row.
	Wrapped bool
}

// Columns returns the total column span of the segment.
func (s RowSegment) Columns() int {
	total := 0
	for _, w := range s.Widths {
		total += w
	}
	return total
}

// Text returns the segment's glyphs as a string, for logs and tests.
func (s RowSegment) Text() string {
	return string(s.Runes)
}
