package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antonio/obsidian-task-archiver/internal/rules"
	"github.com/antonio/obsidian-task-archiver/internal/tree"
)

// Settings controls archiver behavior. It is loaded from a YAML file and
// passed explicitly into the orchestrator; components downstream receive only
// the slice of it they need.
type Settings struct {
	// Indentation convention for nested list items.
	IndentWithTabs bool `yaml:"indent_with_tabs"`
	TabSize        int  `yaml:"tab_size"`

	// Archive section inside the source document.
	ArchiveHeading            string `yaml:"archive_heading"`       // placeholder template
	ArchiveHeadingLevel       int    `yaml:"archive_heading_level"` // 1..6
	AddNewlinesAroundHeadings bool   `yaml:"add_newlines_around_headings"`

	// Default destination when no rule matches.
	ArchiveToSeparateFile  bool   `yaml:"archive_to_separate_file"`
	DefaultDestinationPath string `yaml:"default_destination_path"`
	DateFormat             string `yaml:"date_format"`

	// Date tree: levels of date sub-headings under the archive location.
	DateLevels []string `yaml:"date_levels"`

	// Status markers that mean "needs archiving", and the marker written
	// when a task is archived from the cursor.
	DoneStatuses []string `yaml:"done_statuses"`
	DoneMarker   string   `yaml:"done_marker"`

	// Per-status routing rules, tried in order before the default.
	Rules []rules.Rule `yaml:"rules"`
}

// DefaultSettings archives into a same-file "Archive" section without a date
// tree, treating "x" as the only completed status.
func DefaultSettings() Settings {
	return Settings{
		TabSize:             2,
		ArchiveHeading:      "Archive",
		ArchiveHeadingLevel: 1,
		DateFormat:          "YYYY-MM-DD",
		DoneStatuses:        []string{"x"},
		DoneMarker:          "x",
	}
}

// LoadSettings reads the YAML settings file, layering it over the defaults.
// An empty path returns the defaults unchanged.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.ArchiveHeading == "" {
		return fmt.Errorf("archive_heading must not be empty")
	}
	if s.ArchiveHeadingLevel < 1 || s.ArchiveHeadingLevel > 6 {
		return fmt.Errorf("archive_heading_level must be within 1..6, got %d", s.ArchiveHeadingLevel)
	}
	if s.ArchiveToSeparateFile && s.DefaultDestinationPath == "" {
		return fmt.Errorf("default_destination_path is required when archive_to_separate_file is set")
	}
	if len(s.DoneStatuses) == 0 {
		return fmt.Errorf("done_statuses must not be empty")
	}
	if s.DoneMarker == "" {
		return fmt.Errorf("done_marker must not be empty")
	}
	for i, r := range s.Rules {
		if len(r.Statuses) == 0 {
			return fmt.Errorf("rule %d: statuses must not be empty", i)
		}
		if r.ArchiveToSeparateFile && r.DestinationPath == "" {
			return fmt.Errorf("rule %d: destination_path is required when archive_to_separate_file is set", i)
		}
	}
	return nil
}

// Indent returns the indentation style the settings describe.
func (s Settings) Indent() tree.IndentStyle {
	return tree.IndentStyle{UseTab: s.IndentWithTabs, TabSize: s.TabSize}
}

// DefaultRule synthesizes the fallback rule from the top-level settings, so
// routing always produces a destination.
func (s Settings) DefaultRule() rules.Rule {
	return rules.Rule{
		Statuses:              s.DoneStatuses,
		ArchiveToSeparateFile: s.ArchiveToSeparateFile,
		DestinationPath:       s.DefaultDestinationPath,
		DateFormat:            s.DateFormat,
		DateLevels:            s.DateLevels,
	}
}

// Router builds the rule router the orchestrator classifies blocks with.
func (s Settings) Router() rules.Router {
	return rules.Router{Rules: s.Rules, Default: s.DefaultRule()}
}
