package archiver

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/antonio/obsidian-task-archiver/internal/config"
	"github.com/antonio/obsidian-task-archiver/internal/editor"
	"github.com/antonio/obsidian-task-archiver/internal/extract"
	"github.com/antonio/obsidian-task-archiver/internal/rules"
)

// fakeStorage is an in-memory Storage that records writes.
type fakeStorage struct {
	mu       sync.Mutex
	docs     map[string][]string
	writes   int
	failPath string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{docs: make(map[string][]string)}
}

func (s *fakeStorage) ReadLines(path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.docs[path]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *fakeStorage) WriteLines(path string, lines []string) error {
	if path == s.failPath {
		return errors.New("disk full")
	}
	out := make([]string, len(lines))
	copy(out, lines)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = out
	s.writes++
	return nil
}

func (s *fakeStorage) Exists(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[path]
	return ok, nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}

func newTestArchiver(t *testing.T, storage Storage, mutate func(*config.Settings)) *Archiver {
	t.Helper()
	settings := config.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	if err := settings.Validate(); err != nil {
		t.Fatalf("invalid test settings: %v", err)
	}
	return New(storage, settings, discardLog(), time.Hour)
}

func TestArchiveMatchingSameFile(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"# Log",
		"- [ ] task A",
		"- [x] task B",
	}
	a := newTestArchiver(t, storage, nil)

	report, err := a.ArchiveMatching("log.md", extract.Shallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Archived 1 tasks" {
		t.Errorf("expected report %q, got %q", "Archived 1 tasks", report)
	}
	want := []string{
		"# Log",
		"- [ ] task A",
		"# Archive",
		"- [x] task B",
	}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Errorf("expected %q, got %q", want, storage.docs["log.md"])
	}
}

func TestArchiveMatchingNothingToDo(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{"- [ ] still open"}
	a := newTestArchiver(t, storage, nil)

	report, err := a.ArchiveMatching("log.md", extract.Shallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Nothing to archive" {
		t.Errorf("expected %q, got %q", "Nothing to archive", report)
	}
	if storage.writes != 0 {
		t.Errorf("expected no writes, got %d", storage.writes)
	}
}

func TestArchiveMatchingSkipsArchiveSection(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"# Archive",
		"- [x] already archived",
	}
	a := newTestArchiver(t, storage, nil)

	report, err := a.ArchiveMatching("log.md", extract.Deep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Nothing to archive" {
		t.Errorf("archived items must not be re-archived, got %q", report)
	}
}

func TestDeleteMatching(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [ ] keep",
		"- [x] drop",
	}
	a := newTestArchiver(t, storage, nil)

	report, err := a.DeleteMatching("log.md", extract.Shallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Deleted 1 tasks" {
		t.Errorf("expected %q, got %q", "Deleted 1 tasks", report)
	}
	want := []string{"- [ ] keep"}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Errorf("expected %q, got %q", want, storage.docs["log.md"])
	}
}

func TestShallowSkipsNestedTasks(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [ ] parent",
		"  - [x] child",
	}
	a := newTestArchiver(t, storage, nil)

	report, err := a.ArchiveMatching("log.md", extract.Shallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Nothing to archive" {
		t.Errorf("shallow must not reach nested tasks, got %q", report)
	}
}

func TestDeepExtractsNestedTasks(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [ ] parent",
		"  - [x] child",
	}
	a := newTestArchiver(t, storage, nil)

	report, err := a.ArchiveMatching("log.md", extract.Deep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Archived 1 tasks" {
		t.Errorf("expected %q, got %q", "Archived 1 tasks", report)
	}
	want := []string{
		"- [ ] parent",
		"# Archive",
		"- [x] child",
	}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Errorf("expected %q, got %q", want, storage.docs["log.md"])
	}
}

func TestRulesRouteToSeparateFiles(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [ ] open",
		"- [x] finished",
		"- [>] deferred",
	}
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.DoneStatuses = []string{"x", ">"}
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "done.md"
		s.Rules = []rules.Rule{{
			Statuses:              []string{">"},
			ArchiveToSeparateFile: true,
			DestinationPath:       "deferred {{YYYY}}.md",
		}}
	})

	report, err := a.ArchiveMatching("log.md", extract.Shallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Archived 2 tasks" {
		t.Errorf("expected %q, got %q", "Archived 2 tasks", report)
	}
	if got := storage.docs["log.md"]; !reflect.DeepEqual(got, []string{"- [ ] open"}) {
		t.Errorf("source: expected only the open task, got %q", got)
	}
	if got := storage.docs["done.md"]; !reflect.DeepEqual(got, []string{"- [x] finished"}) {
		t.Errorf("done.md: got %q", got)
	}
	if got := storage.docs["deferred 2023.md"]; !reflect.DeepEqual(got, []string{"- [>] deferred"}) {
		t.Errorf("deferred 2023.md: got %q", got)
	}
}

func TestFailedDestinationWriteKeepsSource(t *testing.T) {
	storage := newFakeStorage()
	storage.failPath = "done.md"
	source := []string{"- [x] finished"}
	storage.docs["log.md"] = append([]string(nil), source...)
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "done.md"
	})

	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err == nil {
		t.Fatal("expected the destination write failure to propagate")
	}
	if !reflect.DeepEqual(storage.docs["log.md"], source) {
		t.Errorf("source must be untouched after a failed destination write, got %q", storage.docs["log.md"])
	}
}

func TestDateTreeGrowsUnderStableHeading(t *testing.T) {
	storage := newFakeStorage()
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.ArchiveHeading = "Archived {{date}}"
		s.DateLevels = []string{"{{YYYY-MM-DD}}"}
	})

	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage.docs["log.md"] = []string{"- [x] a"}
	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"# Archived 2023-01-01",
		"## 2023-01-01",
		"- [x] a",
	}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Fatalf("first run: expected %q, got %q", want, storage.docs["log.md"])
	}

	// On a later day the existing heading is recognized and reused; only a
	// new date leaf appears.
	fixedNow(t, time.Date(2023, 2, 5, 0, 0, 0, 0, time.UTC))
	storage.docs["log.md"] = append([]string{"- [x] b"}, storage.docs["log.md"]...)
	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err != nil {
		t.Fatal(err)
	}
	want = []string{
		"# Archived 2023-01-01",
		"## 2023-01-01",
		"- [x] a",
		"## 2023-02-05",
		"- [x] b",
	}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Errorf("second run: expected %q, got %q", want, storage.docs["log.md"])
	}
}

func TestSeparatorBeforeNewArchiveHeading(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [x] a",
		"- [ ] b",
	}
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.AddNewlinesAroundHeadings = true
	})

	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"- [ ] b",
		"",
		"# Archive",
		"- [x] a",
	}
	if !reflect.DeepEqual(storage.docs["log.md"], want) {
		t.Errorf("expected %q, got %q", want, storage.docs["log.md"])
	}
}

func TestArchiveTaskAtCursor(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	a := newTestArchiver(t, newFakeStorage(), nil)
	buf := editor.NewBuffer([]string{
		"# Log",
		"- [ ] task A",
		"- [ ] task B",
	}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 1})

	report, err := a.ArchiveTaskAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Archived 1 tasks" {
		t.Errorf("expected %q, got %q", "Archived 1 tasks", report)
	}
	want := []string{
		"# Log",
		"- [ ] task B",
		"# Archive",
		"- [x] task A",
	}
	if !reflect.DeepEqual(buf.Lines(), want) {
		t.Errorf("expected %q, got %q", want, buf.Lines())
	}
	if buf.Cursor() != (editor.Position{Line: 1}) {
		t.Errorf("cursor should stay at the removal point, got %+v", buf.Cursor())
	}
}

func TestArchiveTaskAtCursorNoTask(t *testing.T) {
	a := newTestArchiver(t, newFakeStorage(), nil)
	lines := []string{"# Log", "plain text"}
	buf := editor.NewBuffer(append([]string(nil), lines...), a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 0})

	report, err := a.ArchiveTaskAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "No task under the cursor" {
		t.Errorf("expected %q, got %q", "No task under the cursor", report)
	}
	if !reflect.DeepEqual(buf.Lines(), lines) {
		t.Errorf("buffer must be unchanged, got %q", buf.Lines())
	}
}

func TestArchiveTaskAtCursorSeparateFile(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "done.md"
	})
	buf := editor.NewBuffer([]string{"- [ ] task A"}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 0})

	if _, err := a.ArchiveTaskAtCursor("log.md", buf); err != nil {
		t.Fatal(err)
	}
	if len(buf.Lines()) != 0 {
		t.Errorf("expected an empty buffer, got %q", buf.Lines())
	}
	if got := storage.docs["done.md"]; !reflect.DeepEqual(got, []string{"- [x] task A"}) {
		t.Errorf("done.md: got %q", got)
	}
}

func TestArchiveHeadingAtCursor(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	a := newTestArchiver(t, newFakeStorage(), nil)
	buf := editor.NewBuffer([]string{
		"# Log",
		"## Project",
		"### Phase",
		"- [x] done",
		"# Other",
	}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 1})

	report, err := a.ArchiveHeadingAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != `Archived heading "Project"` {
		t.Errorf("unexpected report %q", report)
	}
	want := []string{
		"# Log",
		"# Other",
		"# Archive",
		"## Project",
		"### Phase",
		"- [x] done",
	}
	if !reflect.DeepEqual(buf.Lines(), want) {
		t.Errorf("expected %q, got %q", want, buf.Lines())
	}
}

func TestArchiveHeadingAtCursorReLevels(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	a := newTestArchiver(t, newFakeStorage(), nil)
	buf := editor.NewBuffer([]string{
		"# Log",
		"## Project",
		"### Phase",
		"- [x] done",
	}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 2})

	report, err := a.ArchiveHeadingAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != `Archived heading "Phase"` {
		t.Errorf("unexpected report %q", report)
	}
	// Phase was level 3 under Project; under the level-1 archive section it
	// sits at level 2.
	want := []string{
		"# Log",
		"## Project",
		"# Archive",
		"## Phase",
		"- [x] done",
	}
	if !reflect.DeepEqual(buf.Lines(), want) {
		t.Errorf("expected %q, got %q", want, buf.Lines())
	}
}

func TestArchiveHeadingAtCursorAlreadyArchive(t *testing.T) {
	a := newTestArchiver(t, newFakeStorage(), nil)
	lines := []string{"# Archive", "- [x] old"}
	buf := editor.NewBuffer(append([]string(nil), lines...), a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 0})

	report, err := a.ArchiveHeadingAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Heading is already an archive section" {
		t.Errorf("unexpected report %q", report)
	}
	if !reflect.DeepEqual(buf.Lines(), lines) {
		t.Errorf("buffer must be unchanged, got %q", buf.Lines())
	}
}

func TestArchiveTaskAtCursorDestinationResolvesToSource(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "log.md"
	})
	buf := editor.NewBuffer([]string{
		"- [ ] task A",
		"- [ ] task B",
	}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 0})

	report, err := a.ArchiveTaskAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "Archived 1 tasks" {
		t.Errorf("expected %q, got %q", "Archived 1 tasks", report)
	}
	// The task must stay in the buffer the caller writes back; a storage
	// write to the same path would be clobbered by that write.
	want := []string{
		"- [ ] task B",
		"- [x] task A",
	}
	if !reflect.DeepEqual(buf.Lines(), want) {
		t.Errorf("expected %q, got %q", want, buf.Lines())
	}
	if storage.writes != 0 {
		t.Errorf("expected no storage writes, got %d", storage.writes)
	}
}

func TestArchiveHeadingAtCursorDestinationResolvesToSource(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "log.md"
	})
	buf := editor.NewBuffer([]string{
		"# Done",
		"- [x] a",
		"# Next",
	}, a.Settings().Indent())
	buf.SetCursor(editor.Position{Line: 0})

	report, err := a.ArchiveHeadingAtCursor("log.md", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != `Archived heading "Done"` {
		t.Errorf("unexpected report %q", report)
	}
	want := []string{
		"# Next",
		"# Done",
		"- [x] a",
	}
	if !reflect.DeepEqual(buf.Lines(), want) {
		t.Errorf("expected %q, got %q", want, buf.Lines())
	}
	if storage.writes != 0 {
		t.Errorf("expected no storage writes, got %d", storage.writes)
	}
}

func TestConcurrentSweepsWithCrossedDestinations(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["a.md"] = []string{"- [>] deferred"}
	storage.docs["b.md"] = []string{"- [x] finished"}
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.DoneStatuses = []string{"x", ">"}
		s.ArchiveToSeparateFile = true
		s.DefaultDestinationPath = "a.md"
		s.Rules = []rules.Rule{{
			Statuses:              []string{">"},
			ArchiveToSeparateFile: true,
			DestinationPath:       "b.md",
		}}
	})

	// Each sweep routes into the other's source; neither may wait on a
	// destination lock while holding its own source lock.
	done := make(chan error, 2)
	go func() {
		_, err := a.ArchiveMatching("a.md", extract.Shallow)
		done <- err
	}()
	go func() {
		_, err := a.ArchiveMatching("b.md", extract.Shallow)
		done <- err
	}()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("sweep failed: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("sweeps did not finish: path locks wedged against each other")
		}
	}
}

func TestRulesSharingDestinationKeepOwnDateLevels(t *testing.T) {
	fixedNow(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{
		"- [x] finished",
		"- [>] deferred",
	}
	a := newTestArchiver(t, storage, func(s *config.Settings) {
		s.DoneStatuses = []string{"x", ">"}
		s.Rules = []rules.Rule{
			{
				Statuses:              []string{"x"},
				ArchiveToSeparateFile: true,
				DestinationPath:       "arch.md",
				DateLevels:            []string{"{{YYYY}}"},
			},
			{
				Statuses:              []string{">"},
				ArchiveToSeparateFile: true,
				DestinationPath:       "arch.md",
			},
		}
	})

	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err != nil {
		t.Fatal(err)
	}
	// One destination document, but each rule merges with its own date
	// levels: the "x" task under its year heading, the ">" task appended
	// directly at document root.
	want := []string{
		"- [>] deferred",
		"# 2023",
		"- [x] finished",
	}
	if !reflect.DeepEqual(storage.docs["arch.md"], want) {
		t.Errorf("expected %q, got %q", want, storage.docs["arch.md"])
	}
}

func TestOperationsAreRecorded(t *testing.T) {
	storage := newFakeStorage()
	storage.docs["log.md"] = []string{"- [x] a"}
	a := newTestArchiver(t, storage, nil)

	if _, err := a.ArchiveMatching("log.md", extract.Shallow); err != nil {
		t.Fatal(err)
	}
	ops := a.Ops().Recent(10)
	if len(ops) != 1 {
		t.Fatalf("expected 1 recorded op, got %d", len(ops))
	}
	op := ops[0]
	if op.Kind != OpArchive || op.Source != "log.md" || !op.Done {
		t.Errorf("unexpected op %+v", op)
	}
	if op.Report != "Archived 1 tasks" || op.Error != "" {
		t.Errorf("unexpected outcome %+v", op)
	}
	if got, ok := a.Ops().Get(op.ID); !ok || got.ID != op.ID {
		t.Errorf("Get(%q) failed", op.ID)
	}
}
