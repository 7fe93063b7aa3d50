// Package archiver composes the parser, extraction, routing, and date-tree
// components into the four public archiving operations.
package archiver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/antonio/obsidian-task-archiver/internal/config"
	"github.com/antonio/obsidian-task-archiver/internal/datetree"
	"github.com/antonio/obsidian-task-archiver/internal/editor"
	"github.com/antonio/obsidian-task-archiver/internal/extract"
	"github.com/antonio/obsidian-task-archiver/internal/parser"
	"github.com/antonio/obsidian-task-archiver/internal/placeholder"
	"github.com/antonio/obsidian-task-archiver/internal/rules"
	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

// timeNow is swapped out in tests.
var timeNow = func() time.Time { return time.Now() }

// Storage is the document I/O collaborator. A missing document reads as
// empty; writes create parent folders as needed.
type Storage interface {
	ReadLines(path string) ([]string, error)
	WriteLines(path string, lines []string) error
	Exists(path string) (bool, error)
}

// Archiver is the orchestrator. All configuration is passed at construction;
// operations are synchronous, and each document's read-mutate-write cycle is
// serialized per path.
type Archiver struct {
	storage  Storage
	settings config.Settings
	router   rules.Router
	parse    parser.Settings
	heading  placeholder.Template
	log      *slog.Logger
	ops      *OpLog
	locks    *pathLocks
}

func New(storage Storage, settings config.Settings, log *slog.Logger, opTTL time.Duration) *Archiver {
	return &Archiver{
		storage:  storage,
		settings: settings,
		router:   settings.Router(),
		parse:    parser.Settings{Indent: settings.Indent()},
		heading:  placeholder.New(settings.ArchiveHeading, settings.DateFormat),
		log:      log,
		ops:      NewOpLog(opTTL),
		locks:    newPathLocks(),
	}
}

// Ops exposes the operation log for the API layer.
func (a *Archiver) Ops() *OpLog { return a.ops }

// Settings returns the configuration the archiver was built with.
func (a *Archiver) Settings() config.Settings { return a.settings }

// ArchiveMatching extracts every completed task from the source document and
// moves it to its rule-selected destination. The source is written back last,
// after all destination writes succeeded.
func (a *Archiver) ArchiveMatching(sourcePath string, mode extract.Mode) (string, error) {
	op := a.ops.Begin(OpArchive, sourcePath)
	report, err := a.sweep(sourcePath, mode, false)
	a.ops.Finish(op, report, err)
	return report, err
}

// DeleteMatching extracts the same set of tasks as ArchiveMatching but
// discards them.
func (a *Archiver) DeleteMatching(sourcePath string, mode extract.Mode) (string, error) {
	op := a.ops.Begin(OpDelete, sourcePath)
	report, err := a.sweep(sourcePath, mode, true)
	a.ops.Finish(op, report, err)
	return report, err
}

func (a *Archiver) sweep(sourcePath string, mode extract.Mode, discard bool) (string, error) {
	// The source lock covers the read and the final write but is released
	// around delivery: deliver takes destination locks, and two sweeps whose
	// rules cross-route into each other's source must not each hold one path
	// lock while waiting on the other. The mutated tree, not a re-read, is
	// what the final write persists.
	unlock := a.locks.lock(sourcePath)
	lines, err := a.storage.ReadLines(sourcePath)
	if err != nil {
		unlock()
		return "", err
	}
	root := parser.Parse(lines, a.parse)

	blocks := extract.Extract(root, a.needsArchiving, a.notArchiveSection, mode)
	if len(blocks) == 0 {
		unlock()
		if discard {
			return "Nothing to delete", nil
		}
		return "Nothing to archive", nil
	}
	unlock()

	created := false
	if !discard {
		var err error
		created, err = a.deliver(sourcePath, root, blocks)
		if err != nil {
			return "", err
		}
	}

	out := root.Lines(a.parse.Indent)
	if created {
		out = a.separate(out)
	}
	unlock = a.locks.lock(sourcePath)
	defer unlock()
	if err := a.storage.WriteLines(sourcePath, out); err != nil {
		return "", err
	}

	a.log.Info("swept document", "source", sourcePath, "tasks", len(blocks), "deleted", discard)
	if discard {
		return fmt.Sprintf("Deleted %d tasks", len(blocks)), nil
	}
	return fmt.Sprintf("Archived %d tasks", len(blocks)), nil
}

// needsArchiving is the archiving predicate: a checklist item whose status
// marker is one of the configured completed statuses.
func (a *Archiver) needsArchiving(b *tree.Block) bool {
	status, ok := rules.Status(b)
	if !ok {
		return false
	}
	for _, s := range a.settings.DoneStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// notArchiveSection keeps extraction out of archive sections, so already
// archived items are never re-archived.
func (a *Archiver) notArchiveSection(s *tree.Section) bool {
	return !a.heading.Pattern().MatchString(s.Text)
}

// destinationGroup is one batch of blocks bound for a single destination.
type destinationGroup struct {
	rule   rules.Rule
	path   string // empty for the source document's archive section
	blocks []*tree.Block
}

// deliver classifies blocks by rule, groups them by rule and resolved
// destination, and merges each group in. Same-file groups (and separate-file
// groups whose template resolves back to the source) mutate sourceRoot in
// place; other groups go through their own read-mutate-write cycle. Two
// rules sharing a destination path stay separate groups, each merged with
// its own date levels. A failing destination write aborts the remaining
// groups. The returned flag reports whether a new archive section was
// created in sourceRoot.
func (a *Archiver) deliver(sourcePath string, sourceRoot *tree.Section, blocks []*tree.Block) (bool, error) {
	now := timeNow()

	type groupKey struct {
		path string
		rule int
	}
	var groups []*destinationGroup
	index := make(map[groupKey]*destinationGroup)
	for _, b := range blocks {
		rule, ri := a.router.RouteIndex(b)
		path, _ := a.separateDestination(sourcePath, rule, now)
		key := groupKey{path: path, rule: ri}
		g, ok := index[key]
		if !ok {
			g = &destinationGroup{rule: rule, path: path}
			index[key] = g
			groups = append(groups, g)
		}
		g.blocks = append(g.blocks, b)
	}

	created := false
	for _, g := range groups {
		if g.path == "" {
			if g.rule.ArchiveToSeparateFile {
				datetree.Merge(sourceRoot, g.blocks, g.rule.DateLevels, now)
				continue
			}
			sec, madeNew := a.findOrCreateArchiveSection(sourceRoot, now)
			created = created || madeNew
			datetree.Merge(sec, g.blocks, g.rule.DateLevels, now)
			continue
		}
		if err := a.appendToDestination(g.path, g.blocks, nil, g.rule, now); err != nil {
			return created, err
		}
	}
	return created, nil
}

// appendToDestination runs one destination document's read-mutate-write
// cycle: blocks are merged at document root, and sections (from heading
// archiving) are re-leveled to sit one below the document root.
func (a *Archiver) appendToDestination(path string, blocks []*tree.Block, sections []*tree.Section, rule rules.Rule, now time.Time) error {
	unlock := a.locks.lock(path)
	defer unlock()

	lines, err := a.storage.ReadLines(path)
	if err != nil {
		return err
	}
	root := parser.Parse(lines, a.parse)
	datetree.Merge(root, blocks, rule.DateLevels, now)
	for _, sec := range sections {
		sec.ShiftLevel(root.TokenLevel + 1 - sec.TokenLevel)
		root.AppendChild(sec)
	}
	if err := a.storage.WriteLines(path, root.Lines(a.parse.Indent)); err != nil {
		return err
	}
	a.log.Info("wrote destination", "path", path, "blocks", len(blocks), "sections", len(sections))
	return nil
}

// findOrCreateArchiveSection locates the archive section anywhere in the
// tree by the heading recognition pattern, so a heading resolved under an
// earlier date is reused. When absent, a new section is appended at the
// configured level with the heading rendered for now.
func (a *Archiver) findOrCreateArchiveSection(root *tree.Section, now time.Time) (*tree.Section, bool) {
	pat := a.heading.Pattern()
	if sec := root.Find(func(s *tree.Section) bool { return pat.MatchString(s.Text) }); sec != nil {
		return sec, false
	}
	sec := tree.NewSection(a.heading.Render(now), a.settings.ArchiveHeadingLevel)
	root.AppendChild(sec)
	return sec, true
}

// separate inserts a blank line before the archive heading when the settings
// ask for separators and the heading does not already have one.
func (a *Archiver) separate(lines []string) []string {
	if !a.settings.AddNewlinesAroundHeadings {
		return lines
	}
	pat := a.heading.Pattern()
	for i, line := range lines {
		level, ok := parser.IsHeading(line)
		if !ok || level != a.settings.ArchiveHeadingLevel {
			continue
		}
		if !pat.MatchString(line[level+1:]) {
			continue
		}
		if i == 0 || lines[i-1] == "" {
			return lines
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:i]...)
		out = append(out, "")
		out = append(out, lines[i:]...)
		return out
	}
	return lines
}

// ArchiveTaskAtCursor removes the smallest list item enclosing the cursor
// from the editor, marks it completed, and routes it through the default
// rule. The cursor is left at the point of removal. A cursor outside any
// list item is a reported no-op.
func (a *Archiver) ArchiveTaskAtCursor(sourcePath string, ed editor.Editor) (string, error) {
	op := a.ops.Begin(OpArchiveTask, sourcePath)
	report, err := a.archiveTaskAtCursor(sourcePath, ed)
	a.ops.Finish(op, report, err)
	return report, err
}

func (a *Archiver) archiveTaskAtCursor(sourcePath string, ed editor.Editor) (string, error) {
	r, ok := ed.EnclosingListItemRange(ed.Cursor())
	if !ok {
		return "No task under the cursor", nil
	}
	removed := ed.Text(r)
	ed.Replace(r, nil)

	sub := parser.Parse(removed, a.parse)
	blocks := sub.Blocks.Children
	for _, b := range blocks {
		rules.SetStatus(b, a.settings.DoneMarker)
	}

	now := timeNow()
	rule := a.router.Default
	if path, ok := a.separateDestination(sourcePath, rule, now); ok {
		if err := a.appendToDestination(path, blocks, nil, rule, now); err != nil {
			return "", err
		}
	} else {
		root := parser.Parse(ed.Lines(), a.parse)
		if rule.ArchiveToSeparateFile {
			// The destination template resolved back to the source; the
			// caller writes the buffer, so merge into it at document root
			// instead of racing a storage write against the buffer write.
			datetree.Merge(root, blocks, rule.DateLevels, now)
			ed.Replace(editor.Range{Start: 0, End: len(ed.Lines())}, root.Lines(a.parse.Indent))
		} else {
			sec, created := a.findOrCreateArchiveSection(root, now)
			datetree.Merge(sec, blocks, rule.DateLevels, now)
			out := root.Lines(a.parse.Indent)
			if created {
				out = a.separate(out)
			}
			ed.Replace(editor.Range{Start: 0, End: len(ed.Lines())}, out)
		}
	}
	ed.SetCursor(editor.Position{Line: r.Start})
	return "Archived 1 tasks", nil
}

// separateDestination resolves a rule's separate-file destination. ok is
// false for same-file rules and for templates resolving back to the source
// document, which must be handled in memory rather than written through
// storage behind the source's back.
func (a *Archiver) separateDestination(sourcePath string, rule rules.Rule, now time.Time) (string, bool) {
	if !rule.ArchiveToSeparateFile {
		return "", false
	}
	path := placeholder.New(rule.DestinationPath, rule.DateFormat).Render(now)
	if path == sourcePath {
		return "", false
	}
	return path, true
}

// ArchiveHeadingAtCursor moves the heading enclosing the cursor, with its
// entire sub-tree, into the archive section. Every moved section's level is
// shifted by the same delta so the sub-tree's top sits one level below its
// new parent.
func (a *Archiver) ArchiveHeadingAtCursor(sourcePath string, ed editor.Editor) (string, error) {
	op := a.ops.Begin(OpArchiveHeading, sourcePath)
	report, err := a.archiveHeadingAtCursor(sourcePath, ed)
	a.ops.Finish(op, report, err)
	return report, err
}

func (a *Archiver) archiveHeadingAtCursor(sourcePath string, ed editor.Editor) (string, error) {
	r, ok := ed.EnclosingHeadingRange(ed.Cursor())
	if !ok {
		return "No heading under the cursor", nil
	}
	if level, ok := parser.IsHeading(ed.Lines()[r.Start]); ok {
		if a.heading.Pattern().MatchString(ed.Lines()[r.Start][level+1:]) {
			return "Heading is already an archive section", nil
		}
	}
	removed := ed.Text(r)
	ed.Replace(r, nil)

	sub := parser.Parse(removed, a.parse)
	if len(sub.Children) == 0 {
		return "No heading under the cursor", nil
	}
	sec := sub.Children[0]

	now := timeNow()
	rule := a.router.Default
	if path, ok := a.separateDestination(sourcePath, rule, now); ok {
		if err := a.appendToDestination(path, nil, []*tree.Section{sec}, rule, now); err != nil {
			return "", err
		}
	} else {
		root := parser.Parse(ed.Lines(), a.parse)
		if rule.ArchiveToSeparateFile {
			sec.ShiftLevel(root.TokenLevel + 1 - sec.TokenLevel)
			root.AppendChild(sec)
			ed.Replace(editor.Range{Start: 0, End: len(ed.Lines())}, root.Lines(a.parse.Indent))
		} else {
			archive, created := a.findOrCreateArchiveSection(root, now)
			sec.ShiftLevel(archive.TokenLevel + 1 - sec.TokenLevel)
			archive.AppendChild(sec)
			out := root.Lines(a.parse.Indent)
			if created {
				out = a.separate(out)
			}
			ed.Replace(editor.Range{Start: 0, End: len(ed.Lines())}, out)
		}
	}
	ed.SetCursor(editor.Position{Line: r.Start})
	return fmt.Sprintf("Archived heading %q", sec.Text), nil
}
