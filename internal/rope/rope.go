// Package rope implements the per-document mutable text store:
// absolute-offset insert/delete plus conversions between byte offsets,
// (line, UTF-16 column) LSP positions, and (line, byte column)
// syntax-layer positions.
//
// Internally a Rope keeps the full text as byte-slice chunks of a target
// size, with a lazily rebuilt line-start index. Every insert or delete
// copies the whole text and re-chunks it, so an edit costs time linear in
// the document size; this is far simpler than a balanced-tree rope (see
// DESIGN.md).
package rope

import (
	"unicode/utf8"
)

// chunkTarget is the approximate size, in bytes, of each internal chunk.
// Edits rebuild every chunk, not only the ones they touch.
const chunkTarget = 4096

// Rope is a mutable text buffer with O(n) edits and cached line starts.
type Rope struct {
	chunks     [][]byte
	lineStarts []int // byte offset of the start of each line; rebuilt lazily
	dirty      bool  // true when lineStarts needs rebuilding
}

// New creates a Rope from initial text.
func New(text string) *Rope {
	r := &Rope{}
	r.reset([]byte(text))
	return r
}

func (r *Rope) reset(text []byte) {
	r.chunks = chunkBytes(text)
	r.dirty = true
}

func chunkBytes(text []byte) [][]byte {
	if len(text) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for len(text) > 0 {
		n := chunkTarget
		if n > len(text) {
			n = len(text)
		} else {
			// Avoid splitting a multi-byte rune across chunks.
			for n < len(text) && !utf8.RuneStart(text[n]) {
				n++
			}
		}
		chunk := make([]byte, n)
		copy(chunk, text[:n])
		chunks = append(chunks, chunk)
		text = text[n:]
	}
	return chunks
}

// Len returns the total byte length of the document.
func (r *Rope) Len() int {
	n := 0
	for _, c := range r.chunks {
		n += len(c)
	}
	return n
}

// Text returns the full document text. Allocates; callers on a hot path
// should prefer Slice.
func (r *Rope) Text() string {
	total := r.Len()
	buf := make([]byte, 0, total)
	for _, c := range r.chunks {
		buf = append(buf, c...)
	}
	return string(buf)
}

// Bytes returns the full document content as a byte slice. Allocates.
func (r *Rope) Bytes() []byte {
	total := r.Len()
	buf := make([]byte, 0, total)
	for _, c := range r.chunks {
		buf = append(buf, c...)
	}
	return buf
}

// Slice returns the text in the half-open byte range [start, end),
// clamped to document bounds.
func (r *Rope) Slice(start, end int) string {
	total := r.Len()
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start >= end {
		return ""
	}
	buf := make([]byte, 0, end-start)
	pos := 0
	for _, c := range r.chunks {
		chunkEnd := pos + len(c)
		if chunkEnd > start && pos < end {
			lo := start - pos
			if lo < 0 {
				lo = 0
			}
			hi := end - pos
			if hi > len(c) {
				hi = len(c)
			}
			buf = append(buf, c[lo:hi]...)
		}
		pos = chunkEnd
		if pos >= end {
			break
		}
	}
	return string(buf)
}

// Insert inserts text at byte offset at, clamping out-of-range offsets to
// the document end rather than panicking.
func (r *Rope) Insert(at int, text string) {
	if text == "" {
		return
	}
	total := r.Len()
	if at < 0 {
		at = 0
	}
	if at > total {
		at = total
	}
	full := r.Bytes()
	merged := make([]byte, 0, len(full)+len(text))
	merged = append(merged, full[:at]...)
	merged = append(merged, text...)
	merged = append(merged, full[at:]...)
	r.reset(merged)
}

// Delete removes the half-open byte range [start, end), clamping
// out-of-range bounds to the document end.
func (r *Rope) Delete(start, end int) {
	total := r.Len()
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start >= end {
		return
	}
	full := r.Bytes()
	merged := make([]byte, 0, len(full)-(end-start))
	merged = append(merged, full[:start]...)
	merged = append(merged, full[end:]...)
	r.reset(merged)
}

// Replace substitutes the half-open byte range [start, end) with text.
// A nil-ish full-document replacement (start==0, end==Len()) is the
// "reset to full text" fallback for a malformed change range.
func (r *Rope) Replace(start, end int, text string) {
	if start == 0 && end >= r.Len() {
		r.reset([]byte(text))
		return
	}
	r.Delete(start, end)
	r.Insert(start, text)
}

// ReplaceAll discards the current content and starts fresh, used for
// full-text didChange notifications.
func (r *Rope) ReplaceAll(text string) {
	r.reset([]byte(text))
}

func (r *Rope) ensureLineStarts() {
	if !r.dirty {
		return
	}
	starts := []int{0}
	offset := 0
	for _, c := range r.chunks {
		for i, b := range c {
			if b == '\n' {
				starts = append(starts, offset+i+1)
			}
		}
		offset += len(c)
	}
	r.lineStarts = starts
	r.dirty = false
}

// LineCount returns the number of lines (a trailing line with no newline
// still counts as one line, matching LSP semantics for a file with no
// final newline).
func (r *Rope) LineCount() int {
	r.ensureLineStarts()
	return len(r.lineStarts)
}

// OffsetToLineCol converts an absolute byte offset to a (line, byte
// column) pair, 0-based, clamped to the document end.
func (r *Rope) OffsetToLineCol(offset int) (line, col int) {
	r.ensureLineStarts()
	total := r.Len()
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	// Binary search the largest lineStart <= offset.
	lo, hi := 0, len(r.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, offset - r.lineStarts[lo]
}

// LineColToOffset converts a (line, byte column) pair to an absolute byte
// offset, clamping out-of-range lines/columns to the document end.
func (r *Rope) LineColToOffset(line, col int) int {
	r.ensureLineStarts()
	if line < 0 {
		line = 0
	}
	if line >= len(r.lineStarts) {
		return r.Len()
	}
	start := r.lineStarts[line]
	var end int
	if line+1 < len(r.lineStarts) {
		end = r.lineStarts[line+1] - 1 // exclude the newline
		if end < start {
			end = start
		}
	} else {
		end = r.Len()
	}
	offset := start + col
	if offset > end {
		offset = end
	}
	if offset < start {
		offset = start
	}
	return offset
}

// LineBytes returns the raw bytes of a single line, excluding the
// terminating newline.
func (r *Rope) LineBytes(line int) []byte {
	r.ensureLineStarts()
	if line < 0 || line >= len(r.lineStarts) {
		return nil
	}
	start := r.lineStarts[line]
	var end int
	if line+1 < len(r.lineStarts) {
		end = r.lineStarts[line+1] - 1
		if end < start {
			end = start
		}
	} else {
		end = r.Len()
	}
	return []byte(r.Slice(start, end))
}

// PositionToOffset converts an LSP (line, UTF-16 column) Position to a
// byte offset, clamping to the document end rather than panicking.
func (r *Rope) PositionToOffset(line, utf16Col int) int {
	lineBytes := r.LineBytes(line)
	if lineBytes == nil {
		return r.Len()
	}
	byteCol := utf16ColToByteCol(lineBytes, utf16Col)
	r.ensureLineStarts()
	if line >= len(r.lineStarts) {
		return r.Len()
	}
	return r.lineStarts[line] + byteCol
}

// OffsetToPosition converts a byte offset to an LSP (line, UTF-16 column)
// Position.
func (r *Rope) OffsetToPosition(offset int) (line, utf16Col int) {
	line, byteCol := r.OffsetToLineCol(offset)
	lineBytes := r.LineBytes(line)
	return line, byteColToUTF16Col(lineBytes, byteCol)
}

// utf16ColToByteCol maps a UTF-16 code-unit column within a line's bytes
// to the corresponding byte column, clamping past-end columns to the
// line's byte length.
func utf16ColToByteCol(line []byte, utf16Col int) int {
	if utf16Col <= 0 {
		return 0
	}
	units := 0
	bytePos := 0
	for bytePos < len(line) {
		r, size := utf8.DecodeRune(line[bytePos:])
		if r == utf8.RuneError && size <= 1 {
			// Treat invalid byte as one UTF-16 unit to make forward progress.
			units++
			bytePos++
		} else {
			units += utf16Width(r)
			bytePos += size
		}
		if units >= utf16Col {
			return bytePos
		}
	}
	return len(line)
}

// byteColToUTF16Col maps a byte column within a line's bytes to the
// corresponding UTF-16 code-unit column.
func byteColToUTF16Col(line []byte, byteCol int) int {
	if byteCol <= 0 {
		return 0
	}
	if byteCol > len(line) {
		byteCol = len(line)
	}
	units := 0
	bytePos := 0
	for bytePos < byteCol {
		r, size := utf8.DecodeRune(line[bytePos:])
		if r == utf8.RuneError && size <= 1 {
			units++
			bytePos++
			continue
		}
		units += utf16Width(r)
		bytePos += size
	}
	return units
}

func utf16Width(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
