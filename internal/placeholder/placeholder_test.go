package placeholder

import (
	"testing"
	"time"
)

var apr5 = time.Date(2023, time.April, 5, 14, 30, 9, 0, time.UTC)

func TestRender(t *testing.T) {
	tests := []struct {
		template   string
		dateFormat string
		want       string
	}{
		{"Archive", "", "Archive"},
		{"{{YYYY-MM-DD}}", "", "2023-04-05"},
		{"{{YYYY}} week {{ww}}", "", "2023 week 14"},
		{"archive/{{date}}.md", "YYYY-MM", "archive/2023-04.md"},
		{"{{dddd, MMMM DD}}", "", "Wednesday, April 05"},
		{"{{HH:mm:ss}}", "", "14:30:09"},
		{"no tokens at all", "YYYY", "no tokens at all"},
		{"{{QQ}}", "", "QQ"}, // unrecognized tokens pass through literally
		{"unterminated {{YYYY", "", "unterminated {{YYYY"},
	}
	for _, tt := range tests {
		got := New(tt.template, tt.dateFormat).Render(apr5)
		if got != tt.want {
			t.Errorf("Render(%q, %q): expected %q, got %q", tt.template, tt.dateFormat, tt.want, got)
		}
	}
}

func TestPattern_MatchesAnyTimestamp(t *testing.T) {
	templates := []struct {
		template   string
		dateFormat string
	}{
		{"Archive", ""},
		{"Archived on {{YYYY-MM-DD}}", ""},
		{"tasks/{{date}}.md", "YYYY-ww"},
		{"{{dddd}} notes", ""},
	}
	timestamps := []time.Time{
		apr5,
		time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, tmpl := range templates {
		parsed := New(tmpl.template, tmpl.dateFormat)
		pat := parsed.Pattern()
		for _, ts := range timestamps {
			rendered := parsed.Render(ts)
			if !pat.MatchString(rendered) {
				t.Errorf("pattern for %q does not match its own render %q", tmpl.template, rendered)
			}
		}
	}
}

func TestPattern_RejectsOtherText(t *testing.T) {
	pat := New("Archived on {{YYYY-MM-DD}}", "").Pattern()
	for _, s := range []string{
		"Archived on someday",
		"Archived on 2023-04-05 extra",
		"prefix Archived on 2023-04-05",
		"Archive",
	} {
		if pat.MatchString(s) {
			t.Errorf("pattern unexpectedly matched %q", s)
		}
	}
}

func TestPattern_EscapesLiterals(t *testing.T) {
	// Literal regex metacharacters in the template must match themselves.
	parsed := New("a.b (c) {{YYYY}}+", "")
	if !parsed.Pattern().MatchString("a.b (c) 2020+") {
		t.Error("expected literal metacharacters to match themselves")
	}
	if parsed.Pattern().MatchString("aXb (c) 2020+") {
		t.Error("expected the dot to be escaped")
	}
}
