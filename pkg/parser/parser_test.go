package parser

import (
	"errors"
	"testing"

	"github.com/outlinetools/olv/pkg/model"
)

func TestRegistry_DetectLanguage(t *testing.T) {
	r := NewRegistry()

	cases := map[string]string{
		"README.md":      "markdown",
		"notes.MARKDOWN": "markdown",
		"script.py":      "python",
		"unknown.txt":    "markdown", // default
		"Makefile":       "markdown",
	}
	for path, want := range cases {
		if got := r.DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestRegistry_MapExtension(t *testing.T) {
	r := NewRegistry()
	r.MapExtension(".pyw", "python")

	if got := r.DetectLanguage("gui.pyw"); got != "python" {
		t.Errorf("DetectLanguage(gui.pyw) = %q, want python", got)
	}
}

func TestRegistry_ForLanguageUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.ForLanguage("cobol")
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("ForLanguage(cobol) error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestRegistry_ParseHeadingsDispatch(t *testing.T) {
	r := NewRegistry()

	md, err := r.ParseHeadings("# Title\n", "markdown")
	if err != nil {
		t.Fatalf("markdown dispatch failed: %v", err)
	}
	if len(md) != 1 || md[0].Text != "Title" {
		t.Errorf("markdown headings = %+v, want [Title]", md)
	}

	py, err := r.ParseHeadings("def main():\n", "python")
	if err != nil {
		t.Fatalf("python dispatch failed: %v", err)
	}
	if len(py) != 1 || py[0].Text != "main" {
		t.Errorf("python headings = %+v, want [main]", py)
	}

	if _, err := r.ParseHeadings("x", "cobol"); err == nil {
		t.Error("expected error for unregistered language")
	}
}

type fakeParser struct{ headings []model.Heading }

func (f *fakeParser) ParseHeadings(string) ([]model.Heading, error) { return f.headings, nil }

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("Markdown", &fakeParser{headings: []model.Heading{{Text: "stub", Level: 1}}})

	got, err := r.ParseHeadings("# ignored\n", "markdown")
	if err != nil {
		t.Fatalf("ParseHeadings failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "stub" {
		t.Errorf("headings = %+v, want the replacement parser's output", got)
	}
}
