// Package parser converts raw document lines into a section tree. It is a
// single left-to-right pass over the lines; it never fails on arbitrary text.
package parser

import (
	"regexp"
	"strings"

	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

var (
	headingRe  = regexp.MustCompile(`^(#+) (.*)$`)
	listItemRe = regexp.MustCompile(`^([ \t]*)((?:[-*+]|\d+\.) .*)$`)
)

// Settings controls how indentation is interpreted.
type Settings struct {
	Indent tree.IndentStyle
}

// DefaultSettings uses the default indentation convention.
func DefaultSettings() Settings {
	return Settings{Indent: tree.DefaultIndent()}
}

// IsHeading reports whether the line is a heading and returns its level.
func IsHeading(line string) (level int, ok bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return len(m[1]), true
}

// IsListItem reports whether the line is a list item and returns its raw
// leading indentation.
func IsListItem(line string) (indent string, ok bool) {
	m := listItemRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse builds a section tree from lines. The returned section is a virtual
// document root at level 0. Lines are classified as headings, list items, or
// continuations; continuations attach verbatim, so serializing the result
// with the same indentation configuration reproduces lines byte-for-byte for
// any document following the convention.
func Parse(lines []string, st Settings) *tree.Section {
	root := tree.NewDocumentRoot()
	sections := []*tree.Section{root}

	// blocks[i] is the open list item at depth i-1; blocks[0] is the
	// current section's root block.
	blocks := []*tree.Block{root.Blocks}
	var lastItem *tree.Block
	lastDepth := -1

	for _, line := range lines {
		if level, ok := IsHeading(line); ok {
			for len(sections) > 1 && sections[len(sections)-1].TokenLevel >= level {
				sections = sections[:len(sections)-1]
			}
			sec := tree.NewSection(line[level+1:], level)
			sections[len(sections)-1].AppendChild(sec)
			sections = append(sections, sec)
			blocks = []*tree.Block{sec.Blocks}
			lastItem, lastDepth = nil, -1
			continue
		}

		if indent, ok := IsListItem(line); ok {
			depth := st.Indent.Depth(indent)
			// Malformed over-indentation attaches to the deepest open item.
			parentIdx := depth
			if parentIdx > len(blocks)-1 {
				parentIdx = len(blocks) - 1
			}
			item := tree.NewListItem(line[len(indent):])
			blocks[parentIdx].Append(item)
			blocks = append(blocks[:parentIdx+1], item)
			lastItem, lastDepth = item, parentIdx
			continue
		}

		// Continuation: a line indented deeper than the open list item is
		// part of that item's text and travels with it; anything else
		// becomes a verbatim text block under the deepest open container,
		// which keeps serialization in document order.
		if lastItem != nil && strings.TrimSpace(line) != "" {
			ws := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			if len(ws) > 0 && st.Indent.Depth(ws) > lastDepth {
				lastItem.Text += "\n" + line
				continue
			}
		}
		blocks[len(blocks)-1].Append(tree.NewText(line))
		lastItem, lastDepth = nil, -1
	}

	return root
}
