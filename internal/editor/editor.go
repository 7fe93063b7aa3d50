// Package editor defines the cursor/range collaborator the single-item
// archive operations work through, plus a line-buffer implementation of it.
package editor

import (
	"github.com/antonio/obsidian-task-archiver/internal/parser"
	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

// Position is a cursor location within a document.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open [Start, End) span of whole lines.
type Range struct {
	Start int
	End   int
}

// Editor is the host-editor collaborator: range detection around the cursor
// and range replacement.
type Editor interface {
	Lines() []string
	Cursor() Position
	SetCursor(pos Position)
	EnclosingListItemRange(pos Position) (Range, bool)
	EnclosingHeadingRange(pos Position) (Range, bool)
	Text(r Range) []string
	Replace(r Range, lines []string)
}

// Buffer is an in-memory Editor over a slice of lines.
type Buffer struct {
	lines  []string
	cursor Position
	indent tree.IndentStyle
}

func NewBuffer(lines []string, indent tree.IndentStyle) *Buffer {
	return &Buffer{lines: lines, indent: indent}
}

func (b *Buffer) Lines() []string        { return b.lines }
func (b *Buffer) Cursor() Position       { return b.cursor }
func (b *Buffer) SetCursor(pos Position) { b.cursor = pos }

// Text returns a copy of the lines in r.
func (b *Buffer) Text(r Range) []string {
	start, end := b.clamp(r)
	out := make([]string, end-start)
	copy(out, b.lines[start:end])
	return out
}

// Replace substitutes the lines in r.
func (b *Buffer) Replace(r Range, lines []string) {
	start, end := b.clamp(r)
	next := make([]string, 0, len(b.lines)-(end-start)+len(lines))
	next = append(next, b.lines[:start]...)
	next = append(next, lines...)
	next = append(next, b.lines[end:]...)
	b.lines = next
}

func (b *Buffer) clamp(r Range) (int, int) {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > len(b.lines) {
		end = len(b.lines)
	}
	if start > end {
		start = end
	}
	return start, end
}

// EnclosingListItemRange finds the smallest list item (with its continuation
// lines and nested sub-items) containing pos. ok is false when the cursor is
// not inside any list item.
func (b *Buffer) EnclosingListItemRange(pos Position) (Range, bool) {
	line := pos.Line
	if line < 0 || line >= len(b.lines) {
		return Range{}, false
	}

	// Walk up to the owning list item. A candidate whose range ends before
	// the cursor line does not own it (a continuation line at the same
	// depth as a deeper sibling continues a shallower item), so keep
	// scanning upward past it.
	for i := line; i >= 0; i-- {
		if _, ok := parser.IsHeading(b.lines[i]); ok {
			break
		}
		if indent, ok := parser.IsListItem(b.lines[i]); ok {
			end := b.itemEnd(i+1, b.indent.Depth(indent))
			if line < end {
				return Range{Start: i, End: end}, true
			}
			continue
		}
		if i < line && !b.isIndented(b.lines[i], 0) {
			// An unindented non-list line between cursor and candidate
			// means the cursor sits in plain text, not in an item.
			break
		}
	}
	return Range{}, false
}

// itemEnd scans forward from line for the first line that no longer belongs
// to an item at depth: a heading, an item at the same or a shallower depth,
// or a non-list line not indented past depth.
func (b *Buffer) itemEnd(line, depth int) int {
	end := line
	for end < len(b.lines) {
		if _, ok := parser.IsHeading(b.lines[end]); ok {
			break
		}
		if indent, ok := parser.IsListItem(b.lines[end]); ok {
			if b.indent.Depth(indent) <= depth {
				break
			}
		} else if !b.isIndented(b.lines[end], depth) {
			break
		}
		end++
	}
	return end
}

// EnclosingHeadingRange finds the heading at or above pos together with its
// entire sub-tree: every following line up to the next heading of the same
// or a shallower level.
func (b *Buffer) EnclosingHeadingRange(pos Position) (Range, bool) {
	line := pos.Line
	if line < 0 || line >= len(b.lines) {
		return Range{}, false
	}

	start := -1
	level := 0
	for i := line; i >= 0; i-- {
		if l, ok := parser.IsHeading(b.lines[i]); ok {
			start = i
			level = l
			break
		}
	}
	if start < 0 {
		return Range{}, false
	}

	end := start + 1
	for end < len(b.lines) {
		if l, ok := parser.IsHeading(b.lines[end]); ok && l <= level {
			break
		}
		end++
	}
	return Range{Start: start, End: end}, true
}

// isIndented reports whether a non-list line is indented deeper than depth,
// i.e. whether it continues the item at that depth.
func (b *Buffer) isIndented(line string, depth int) bool {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i == 0 {
		return false
	}
	return b.indent.Depth(line[:i]) > depth
}
