// Package tree holds the in-memory document model: headings become Sections,
// list items become Blocks. The model is owned and mutable — moving a block
// between containers always detaches it from its previous owner first.
package tree

// BlockKind distinguishes the three block flavors.
type BlockKind int

const (
	// KindRoot is the synthetic container for blocks directly under a heading.
	KindRoot BlockKind = iota
	// KindListItem is a list item line (bullet or numbered), possibly with
	// continuation lines folded into its text.
	KindListItem
	// KindText is a verbatim non-list, non-heading line.
	KindText
)

// Block is a list item (or text line, or synthetic root) with nested children.
// Children keep document order at all times.
type Block struct {
	Kind     BlockKind
	Text     string // marker + content for list items (no indentation); raw line for text blocks; empty for roots
	Children []*Block
}

func NewRoot() *Block                { return &Block{Kind: KindRoot} }
func NewListItem(text string) *Block { return &Block{Kind: KindListItem, Text: text} }
func NewText(text string) *Block     { return &Block{Kind: KindText, Text: text} }

// Append attaches child as the last child of b.
func (b *Block) Append(child *Block) {
	b.Children = append(b.Children, child)
}

// Remove detaches child from b's children, preserving the order of the rest.
// Returns false if child is not a direct child of b.
func (b *Block) Remove(child *Block) bool {
	for i, c := range b.Children {
		if c == child {
			b.Children = append(b.Children[:i], b.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Section is a heading, the list content directly under it, and its
// sub-headings. A virtual document root has TokenLevel 0 and no heading text.
type Section struct {
	Text       string // heading title, without the marker
	TokenLevel int    // heading depth, 1 = top; 0 for the document root
	Blocks     *Block // always a KindRoot block
	Children   []*Section
}

// NewSection creates an empty section at the given heading level.
func NewSection(text string, level int) *Section {
	return &Section{Text: text, TokenLevel: level, Blocks: NewRoot()}
}

// NewDocumentRoot creates the virtual level-0 section a parse starts from.
func NewDocumentRoot() *Section {
	return NewSection("", 0)
}

// AppendChild attaches child as the last sub-section of s.
func (s *Section) AppendChild(child *Section) {
	s.Children = append(s.Children, child)
}

// ShiftLevel moves the whole subtree's heading depth by delta, preserving
// relative depth differences between s and its descendants.
func (s *Section) ShiftLevel(delta int) {
	s.TokenLevel += delta
	for _, c := range s.Children {
		c.ShiftLevel(delta)
	}
}

// Find returns the first section in the subtree (pre-order, s included) for
// which match holds, or nil. The document root itself is never matched since
// it has no heading text.
func (s *Section) Find(match func(*Section) bool) *Section {
	if s.TokenLevel > 0 && match(s) {
		return s
	}
	for _, c := range s.Children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}
