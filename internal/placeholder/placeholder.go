// Package placeholder resolves date-format templates used in archive heading
// text and destination file paths. A template is parsed once into literal and
// date-token segments, and the segments support two interpretations: Render
// substitutes the current timestamp, Pattern builds a regular expression that
// matches Render's output for any timestamp. The pattern is what lets an
// archive heading created last month be recognized today instead of
// duplicated.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// tokenDefs is ordered longest-first so tokenization is greedy.
var tokenDefs = []struct {
	name    string
	pattern string
	render  func(time.Time) string
}{
	{"YYYY", `\d{4}`, func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"YY", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	{"MMMM", `[A-Za-z]+`, func(t time.Time) string { return t.Month().String() }},
	{"MMM", `[A-Za-z]{3}`, func(t time.Time) string { return t.Format("Jan") }},
	{"MM", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	{"DD", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	{"dddd", `[A-Za-z]+`, func(t time.Time) string { return t.Weekday().String() }},
	{"ddd", `[A-Za-z]{3}`, func(t time.Time) string { return t.Format("Mon") }},
	{"ww", `\d{2}`, func(t time.Time) string { _, w := t.ISOWeek(); return fmt.Sprintf("%02d", w) }},
	{"HH", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) }},
	{"mm", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) }},
	{"ss", `\d{2}`, func(t time.Time) string { return fmt.Sprintf("%02d", t.Second()) }},
}

type segment struct {
	literal string // set for literal segments
	token   int    // index into tokenDefs, -1 for literals
}

// Template is a parsed placeholder template.
type Template struct {
	segs    []segment
	pattern *regexp.Regexp
}

// New parses a template. Date tokens appear inside {{...}} markers; the
// special {{date}} placeholder expands to dateFormat. Text outside markers,
// and unrecognized characters inside them, pass through literally. New never
// fails: a template with no recognizable tokens is an all-literal template.
func New(template, dateFormat string) Template {
	var t Template
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			t.literal(rest)
			break
		}
		end := strings.Index(rest[open:], "}}")
		if end < 0 {
			t.literal(rest)
			break
		}
		t.literal(rest[:open])
		format := rest[open+2 : open+end]
		if format == "date" {
			format = dateFormat
		}
		t.format(format)
		rest = rest[open+end+2:]
	}
	t.compile()
	return t
}

func (t *Template) literal(s string) {
	if s != "" {
		t.segs = append(t.segs, segment{literal: s, token: -1})
	}
}

// format tokenizes the inside of a {{...}} marker.
func (t *Template) format(s string) {
	for len(s) > 0 {
		matched := false
		for i, def := range tokenDefs {
			if strings.HasPrefix(s, def.name) {
				t.segs = append(t.segs, segment{token: i})
				s = s[len(def.name):]
				matched = true
				break
			}
		}
		if !matched {
			t.literal(s[:1])
			s = s[1:]
		}
	}
}

func (t *Template) compile() {
	var b strings.Builder
	b.WriteString("^")
	for _, seg := range t.segs {
		if seg.token >= 0 {
			b.WriteString(tokenDefs[seg.token].pattern)
		} else {
			b.WriteString(regexp.QuoteMeta(seg.literal))
		}
	}
	b.WriteString("$")
	t.pattern = regexp.MustCompile(b.String())
}

// Render substitutes the timestamp into the template.
func (t Template) Render(now time.Time) string {
	var b strings.Builder
	for _, seg := range t.segs {
		if seg.token >= 0 {
			b.WriteString(tokenDefs[seg.token].render(now))
		} else {
			b.WriteString(seg.literal)
		}
	}
	return b.String()
}

// Pattern returns the recognition pattern: it matches any string Render has
// produced for this template, regardless of the timestamp used.
func (t Template) Pattern() *regexp.Regexp {
	return t.pattern
}
