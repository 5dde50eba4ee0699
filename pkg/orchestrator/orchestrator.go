// Package orchestrator coordinates the full pipeline: validate the input
// directories, load the variables table, resolve each stack's configuration,
// and dispatch its templates through the renderer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/stackgen/pkg/engine"
	"github.com/example/stackgen/pkg/engine/pongo"
	"github.com/example/stackgen/pkg/render"
	"github.com/example/stackgen/pkg/vars"
)

// Input names which of the required directories a MissingDirError refers to.
type Input string

const (
	// InputVars is the variables root.
	InputVars Input = "variables"
	// InputTemplates is the template source.
	InputTemplates Input = "templates"
)

// MissingDirError reports a required input directory that does not exist.
// Raised before any work happens so a typo'd path never produces an empty
// output tree.
type MissingDirError struct {
	Input Input
	Path  string
}

func (e *MissingDirError) Error() string {
	return fmt.Sprintf("orchestrator: %s directory not found at %q", e.Input, e.Path)
}

// StackFilter narrows the set of stacks to render. It receives every leaf
// key in processing order and returns the subset to keep; order of the
// returned slice is ignored, processing order stays lexicographic.
type StackFilter func(stacks []string) ([]string, error)

// Option customises the orchestrator.
type Option func(*Orchestrator)

// WithEngine injects a template engine, bypassing the default pongo2 engine
// built from the request's templates directory. When an engine is injected
// the templates directory is not required to exist.
func WithEngine(eng engine.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = eng
	}
}

// WithLogger attaches a logger used across the pipeline.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExtension overrides the template extension convention passed to the
// renderer.
func WithExtension(ext string) Option {
	return func(o *Orchestrator) {
		o.ext = ext
		o.extSet = true
	}
}

// WithJobs enables rendering up to n stacks concurrently. Stacks share no
// state, so the only observable difference from sequential runs is which
// fatal error is reported when several stacks fail. Values below 2 keep the
// default sequential behaviour with its deterministic abort point.
func WithJobs(n int) Option {
	return func(o *Orchestrator) {
		o.jobs = n
	}
}

// WithStackFilter registers a filter consulted after the leaves are
// discovered, before any rendering starts.
func WithStackFilter(filter StackFilter) Option {
	return func(o *Orchestrator) {
		o.filter = filter
	}
}

// Orchestrator runs the load → resolve → select → render sequence once per
// stack.
type Orchestrator struct {
	engine engine.Engine
	logger *zap.Logger
	filter StackFilter
	ext    string
	extSet bool
	jobs   int
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// Request names the three directory roots of one run.
type Request struct {
	// VarsDir is the variables hierarchy root.
	VarsDir string

	// TemplatesDir is the template source directory. Ignored when an
	// engine was injected via WithEngine.
	TemplatesDir string

	// OutputDir is the root under which stack output trees are written.
	OutputDir string
}

// Run executes the pipeline. Stacks are processed in lexicographic key
// order; the first fatal error aborts the run, leaving any output already
// written in place.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := requireDir(InputVars, req.VarsDir); err != nil {
		return err
	}
	eng := o.engine
	if eng == nil {
		if err := requireDir(InputTemplates, req.TemplatesDir); err != nil {
			return err
		}
		built, err := pongo.New(req.TemplatesDir)
		if err != nil {
			return err
		}
		eng = built
	}

	table, err := vars.Load(req.VarsDir, vars.WithLogger(o.logger))
	if err != nil {
		return err
	}
	stacks := table.Leaves()
	o.logger.Info("variables loaded",
		zap.Int("levels", len(table.Keys())),
		zap.Int("depth", table.MaxDepth()),
		zap.Int("stacks", len(stacks)))

	if o.filter != nil {
		stacks, err = o.applyFilter(stacks)
		if err != nil {
			return err
		}
	}

	rendererOptions := []render.Option{render.WithLogger(o.logger)}
	if o.extSet {
		rendererOptions = append(rendererOptions, render.WithExtension(o.ext))
	}
	renderer := render.New(eng, req.OutputDir, rendererOptions...)

	if o.jobs > 1 {
		return o.runParallel(ctx, table, renderer, stacks)
	}
	for _, stack := range stacks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.renderStack(table, renderer, stack); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, table *vars.Table, renderer *render.Renderer, stacks []vars.Key) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(o.jobs)
	for _, stack := range stacks {
		stack := stack
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return o.renderStack(table, renderer, stack)
		})
	}
	return group.Wait()
}

func (o *Orchestrator) renderStack(table *vars.Table, renderer *render.Renderer, stack vars.Key) error {
	resolved, err := table.Resolve(stack)
	if err != nil {
		return err
	}
	if err := renderer.RenderStack(stack, resolved); err != nil {
		return err
	}
	o.logger.Info("stack rendered", zap.String("stack", string(stack)))
	return nil
}

func (o *Orchestrator) applyFilter(stacks []vars.Key) ([]vars.Key, error) {
	names := make([]string, 0, len(stacks))
	for _, stack := range stacks {
		names = append(names, string(stack))
	}
	chosen, err := o.filter(names)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: filter stacks: %w", err)
	}
	keep := make(map[string]struct{}, len(chosen))
	for _, name := range chosen {
		keep[name] = struct{}{}
	}
	filtered := stacks[:0]
	for _, stack := range stacks {
		if _, ok := keep[string(stack)]; ok {
			filtered = append(filtered, stack)
		}
	}
	return filtered, nil
}

func requireDir(input Input, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &MissingDirError{Input: input, Path: path}
	}
	return nil
}
