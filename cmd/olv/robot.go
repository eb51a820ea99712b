package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/outlinetools/olv/pkg/model"
	"github.com/outlinetools/olv/pkg/outline"
	"github.com/outlinetools/olv/pkg/parser"
)

// robotDocument is one file's outline in machine-readable form.
type robotDocument struct {
	Path     string        `json:"path"`
	Language string        `json:"language"`
	Headings int           `json:"headings"`
	Outline  []*model.Node `json:"outline"`
}

// runRobot parses every file and prints a JSON array of outlines to w.
// Files are parsed concurrently but output order follows the argument
// order.
func runRobot(w io.Writer, registry *parser.Registry, files []string, forcedLang string) error {
	docs := make([]robotDocument, len(files))

	var g errgroup.Group
	g.SetLimit(8)
	for i, path := range files {
		g.Go(func() error {
			lang := forcedLang
			if lang == "" {
				lang = registry.DetectLanguage(path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			headings, err := registry.ParseHeadings(string(data), lang)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			tree := outline.Build(headings, len(data))
			docs[i] = robotDocument{
				Path:     path,
				Language: lang,
				Headings: tree.NodeCount(),
				Outline:  tree.Roots,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
