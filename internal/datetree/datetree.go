// Package datetree appends archived blocks under a chain of date-based
// sub-headings (for example year → week → day) inside a destination section.
package datetree

import (
	"time"

	"github.com/antonio/obsidian-task-archiver/internal/placeholder"
	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

// Merge inserts blocks, in the order given, under date-unit headings derived
// from now. Each level template (e.g. "{{YYYY-MM-DD}}") is rendered and
// matched exactly against the existing children of the current insertion
// point; a missing date section is created with the parent's level plus one
// and appended last. Pre-existing content is never removed or reordered.
//
// An empty levels chain appends the blocks directly to dest.
func Merge(dest *tree.Section, blocks []*tree.Block, levels []string, now time.Time) {
	leaf := dest
	for _, level := range levels {
		label := placeholder.New(level, "").Render(now)
		leaf = findOrCreate(leaf, label)
	}
	for _, b := range blocks {
		leaf.Blocks.Append(b)
	}
}

func findOrCreate(parent *tree.Section, label string) *tree.Section {
	for _, c := range parent.Children {
		if c.Text == label {
			return c
		}
	}
	sec := tree.NewSection(label, parent.TokenLevel+1)
	parent.AppendChild(sec)
	return sec
}
