package tree

import "strings"

// IndentStyle is the single indentation convention a vault uses for nested
// list items.
type IndentStyle struct {
	UseTab  bool
	TabSize int // spaces per level when UseTab is false
}

// DefaultIndent matches the most common vault setup: 2-space indents.
func DefaultIndent() IndentStyle {
	return IndentStyle{UseTab: false, TabSize: 2}
}

// Token returns the string one level of indentation serializes to.
func (st IndentStyle) Token() string {
	if st.UseTab {
		return "\t"
	}
	n := st.TabSize
	if n <= 0 {
		n = 2
	}
	return strings.Repeat(" ", n)
}

// Depth converts a run of leading whitespace into an indentation level.
// Mixed or partial indentation rounds down to the nearest full level.
func (st IndentStyle) Depth(indent string) int {
	if st.UseTab {
		return strings.Count(indent, "\t")
	}
	n := st.TabSize
	if n <= 0 {
		n = 2
	}
	spaces := 0
	for _, r := range indent {
		if r == '\t' {
			spaces += n
		} else {
			spaces++
		}
	}
	return spaces / n
}

// Lines serializes the section subtree back to document lines. Parsing a
// document and serializing it with the same indentation configuration
// reproduces the original lines.
func (s *Section) Lines(st IndentStyle) []string {
	var out []string
	s.appendLines(&out, st)
	return out
}

func (s *Section) appendLines(out *[]string, st IndentStyle) {
	if s.TokenLevel > 0 {
		*out = append(*out, strings.Repeat("#", s.TokenLevel)+" "+s.Text)
	}
	appendBlockLines(out, s.Blocks, 0, st)
	for _, c := range s.Children {
		c.appendLines(out, st)
	}
}

func appendBlockLines(out *[]string, b *Block, depth int, st IndentStyle) {
	switch b.Kind {
	case KindListItem:
		// First line gets recomputed indentation; continuation lines were
		// captured verbatim and are emitted as-is.
		first, rest, multi := cutLine(b.Text)
		*out = append(*out, strings.Repeat(st.Token(), depth)+first)
		if multi {
			*out = append(*out, strings.Split(rest, "\n")...)
		}
		depth++
	case KindText:
		*out = append(*out, b.Text)
	}
	for _, c := range b.Children {
		appendBlockLines(out, c, depth, st)
	}
}

func cutLine(s string) (first, rest string, multi bool) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}
