// Package pongo adapts the pongo2 template engine (Django/Jinja syntax) to
// the engine.Engine contract, loading templates from a directory on disk.
package pongo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/example/stackgen/pkg/engine"
)

// Option configures the adapter before construction.
type Option func(*config)

type config struct {
	setName string
}

// WithSetName overrides the name pongo2 uses for the template set in its
// diagnostics.
func WithSetName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.setName = trimmed
		}
	}
}

// Engine satisfies engine.Engine with a pongo2 template set backed by a
// local directory. Parsed templates are cached per identifier.
type Engine struct {
	mu sync.RWMutex

	baseDir     string
	templateSet *pongo2.TemplateSet
	templates   map[string]*pongo2.Template
}

var _ engine.Engine = (*Engine)(nil)

// New constructs an Engine rooted at baseDir.
func New(baseDir string, options ...Option) (*Engine, error) {
	cfg := &config{setName: "stackgen"}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("pongo: template directory is required")
	}
	loader, err := pongo2.NewLocalFileSystemLoader(baseDir)
	if err != nil {
		return nil, fmt.Errorf("pongo: create loader: %w", err)
	}

	return &Engine{
		baseDir:     baseDir,
		templateSet: pongo2.NewSet(cfg.setName, loader),
		templates:   make(map[string]*pongo2.Template),
	}, nil
}

// List walks the template directory and returns every regular file as a
// slash-separated identifier relative to the base directory, sorted.
func (e *Engine) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(e.baseDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(e.baseDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pongo: list templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Render executes the named template against env. The identifier is used
// verbatim; callers decide naming conventions such as extensions.
func (e *Engine) Render(name string, env map[string]any) (string, error) {
	tmpl, err := e.getTemplate(name)
	if err != nil {
		return "", err
	}

	viewContext := pongo2.Context(env)
	if viewContext == nil {
		viewContext = pongo2.Context{}
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("pongo: execute template %q: %w", name, err)
	}
	return buf.String(), nil
}

func (e *Engine) getTemplate(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[name]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.templateSet.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("pongo: load template %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}
