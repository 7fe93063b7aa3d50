// Package extract removes matching blocks from a section tree. Extraction is
// destructive: returned blocks are detached from their former owners, and the
// caller must serialize the mutated tree to persist the removal.
package extract

import "github.com/antonio/obsidian-task-archiver/internal/tree"

// Mode selects how deep the block filter is applied.
type Mode int

const (
	// Shallow tests only each section's top-level blocks; a matching block
	// is extracted whole, children included, without testing them.
	Shallow Mode = iota
	// Deep tests every block at every nesting depth. A matching child under
	// a non-matching parent is extracted alone and re-parented as a
	// top-level unit; the parent keeps its other children.
	Deep
)

// BlockFilter decides whether a block is extracted.
type BlockFilter func(*tree.Block) bool

// SectionFilter decides whether a section's contents are inspected at all.
// It is how archive sections are excluded from re-archiving.
type SectionFilter func(*tree.Section) bool

// Extract walks root in pre-order (a section's own blocks before its child
// sections) and removes every block blockFilter matches, restricted to
// sections sectionFilter admits. The result keeps document order.
func Extract(root *tree.Section, blockFilter BlockFilter, sectionFilter SectionFilter, mode Mode) []*tree.Block {
	var out []*tree.Block
	extractSection(root, blockFilter, sectionFilter, mode, &out)
	return out
}

func extractSection(s *tree.Section, bf BlockFilter, sf SectionFilter, mode Mode, out *[]*tree.Block) {
	extractBlocks(s.Blocks, bf, mode, out)
	for _, child := range s.Children {
		if sf == nil || sf(child) {
			extractSection(child, bf, sf, mode, out)
		}
	}
}

func extractBlocks(parent *tree.Block, bf BlockFilter, mode Mode, out *[]*tree.Block) {
	kept := parent.Children[:0:0]
	for _, c := range parent.Children {
		if bf(c) {
			*out = append(*out, c)
			continue
		}
		kept = append(kept, c)
		if mode == Deep {
			extractBlocks(c, bf, mode, out)
		}
	}
	parent.Children = kept
}
