// Package render selects which templates apply to a resolved stack
// configuration and writes their rendered output under the stack's mirror
// directory in the output tree.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example/stackgen/pkg/engine"
	"github.com/example/stackgen/pkg/vars"
)

// DefaultExtension is the conventional template file extension applied when
// mapping allow-list and exclusion names to template identifiers.
const DefaultExtension = ".yaml"

// RenderError wraps a template failure surfaced by the engine: a syntax
// error, a missing template, or an execution error such as a broken filter.
// Any RenderError aborts the whole run.
type RenderError struct {
	Stack    vars.Key
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: stack %q template %q: %v", e.Stack, e.Template, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithExtension overrides the extension used for allow-list and exclusion
// name mapping. Pass the empty string to use names verbatim.
func WithExtension(ext string) Option {
	return func(r *Renderer) {
		r.ext = ext
	}
}

// WithLogger attaches a logger for per-template dispatch events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer dispatches the selected templates of each stack through an
// engine.Engine and writes the results below the output root.
type Renderer struct {
	engine     engine.Engine
	outputRoot string
	ext        string
	logger     *zap.Logger
}

// New constructs a Renderer writing under outputRoot.
func New(eng engine.Engine, outputRoot string, options ...Option) *Renderer {
	r := &Renderer{
		engine:     eng,
		outputRoot: outputRoot,
		ext:        DefaultExtension,
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// RenderStack renders every selected template for one stack into
// outputRoot/<stack segments>/<identifier>. Each written file ends in
// exactly one trailing newline: engine output is normalised so the result
// does not depend on whether the backend preserves or strips the template's
// final line terminator.
func (r *Renderer) RenderStack(stack vars.Key, resolved vars.Mapping) error {
	available, err := r.engine.List()
	if err != nil {
		return fmt.Errorf("render: list templates: %w", err)
	}

	stackDir := filepath.Join(append([]string{r.outputRoot}, stack.Segments()...)...)
	for _, name := range Select(resolved, available, r.ext) {
		rendered, err := r.engine.Render(name, resolved)
		if err != nil {
			return &RenderError{Stack: stack, Template: name, Err: err}
		}

		target := filepath.Join(stackDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("render: create output dir: %w", err)
		}
		content := strings.TrimRight(rendered, "\n") + "\n"
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", target, err)
		}
		r.logger.Debug("rendered template",
			zap.String("stack", string(stack)),
			zap.String("template", name),
			zap.String("output", target))
	}
	return nil
}
