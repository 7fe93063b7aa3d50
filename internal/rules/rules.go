// Package rules routes extracted tasks to destinations based on their status
// marker.
package rules

import (
	"regexp"
	"slices"

	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

var statusRe = regexp.MustCompile(`^(?:[-*+]|\d+\.) \[(.)\]`)

// Rule maps a set of checklist status markers to a destination.
type Rule struct {
	// Statuses are single-character status markers, e.g. "x", ">", "-".
	Statuses []string `yaml:"statuses"`
	// ArchiveToSeparateFile sends matching tasks to DestinationPath instead
	// of the source document's archive section.
	ArchiveToSeparateFile bool `yaml:"archive_to_separate_file"`
	// DestinationPath is a placeholder template for the destination
	// document, e.g. "archive/{{date}}.md".
	DestinationPath string `yaml:"destination_path"`
	// DateFormat expands the {{date}} placeholder in DestinationPath.
	DateFormat string `yaml:"date_format"`
	// DateLevels organizes archived tasks under date sub-headings at the
	// destination; empty means direct append.
	DateLevels []string `yaml:"date_levels"`
}

// Matches reports whether the rule applies to the given status marker.
func (r Rule) Matches(status string) bool {
	return slices.Contains(r.Statuses, status)
}

// Status extracts the checklist status marker from a block's first line.
// ok is false when the block is not a checklist item.
func Status(b *tree.Block) (status string, ok bool) {
	if b.Kind != tree.KindListItem {
		return "", false
	}
	m := statusRe.FindStringSubmatch(b.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SetStatus rewrites the status marker on a block's first line. Blocks
// without a checklist marker are left unchanged.
func SetStatus(b *tree.Block, status string) {
	if b.Kind != tree.KindListItem {
		return
	}
	loc := statusRe.FindStringSubmatchIndex(b.Text)
	if loc == nil {
		return
	}
	b.Text = b.Text[:loc[2]] + status + b.Text[loc[3]:]
}

// Router selects the first configured rule whose status set contains a
// task's marker, falling back to the default rule otherwise. A task whose
// marker cannot be parsed also falls back to the default rule.
type Router struct {
	Rules   []Rule
	Default Rule
}

// Route classifies a block.
func (r Router) Route(b *tree.Block) Rule {
	rule, _ := r.RouteIndex(b)
	return rule
}

// RouteIndex classifies a block and also reports which configured rule
// matched; the default rule is index -1. The index identifies the rule when
// two rules resolve to the same destination path.
func (r Router) RouteIndex(b *tree.Block) (Rule, int) {
	status, ok := Status(b)
	if ok {
		for i, rule := range r.Rules {
			if rule.Matches(status) {
				return rule, i
			}
		}
	}
	return r.Default, -1
}
