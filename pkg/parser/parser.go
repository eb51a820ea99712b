// Package parser extracts heading/symbol events from document text.
//
// Parsers are registered per language ID; the outline engine consumes the
// resulting events without re-validating them. Adding a language means
// implementing Parser and registering it in NewRegistry (or per instance
// for tests).
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/outlinetools/olv/pkg/model"
)

// ErrUnsupportedLanguage is returned when no parser is registered for a
// language ID. Callers treat it as a failed refresh, keeping the last
// good outline.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Parser extracts headings from a document, in document order.
type Parser interface {
	ParseHeadings(text string) ([]model.Heading, error)
}

// Registry maps language IDs to parsers and file extensions to language
// IDs.
type Registry struct {
	parsers map[string]Parser
	byExt   map[string]string
}

// NewRegistry returns a registry with the built-in parsers (markdown,
// python) and default extension mappings.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
		byExt:   make(map[string]string),
	}
	r.Register("markdown", &MarkdownParser{})
	r.Register("python", &PythonParser{})
	r.MapExtension(".md", "markdown")
	r.MapExtension(".markdown", "markdown")
	r.MapExtension(".mdown", "markdown")
	r.MapExtension(".py", "python")
	return r
}

// Register adds or replaces the parser for a language ID.
func (r *Registry) Register(languageID string, p Parser) {
	r.parsers[strings.ToLower(languageID)] = p
}

// MapExtension associates a file extension (with leading dot) to a
// language ID. Used by DetectLanguage and overridable from config.
func (r *Registry) MapExtension(ext, languageID string) {
	r.byExt[strings.ToLower(ext)] = strings.ToLower(languageID)
}

// ForLanguage returns the parser registered for the language ID.
func (r *Registry) ForLanguage(languageID string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(languageID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, languageID)
	}
	return p, nil
}

// DetectLanguage guesses the language ID from the file path. Unknown
// extensions default to markdown, which degrades gracefully for plain
// text (no headings means an empty outline, not an error).
func (r *Registry) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := r.byExt[ext]; ok {
		return lang
	}
	return "markdown"
}

// ParseHeadings parses text with the parser for languageID. It satisfies
// the outline session's ParseFunc signature.
func (r *Registry) ParseHeadings(text, languageID string) ([]model.Heading, error) {
	p, err := r.ForLanguage(languageID)
	if err != nil {
		return nil, err
	}
	return p.ParseHeadings(text)
}
