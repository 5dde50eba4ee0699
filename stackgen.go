// Package stackgen renders a directory of Jinja-style templates once per
// stack: a leaf directory at the maximum depth of a nested variables
// hierarchy. Variables cascade from the hierarchy root down to each leaf,
// deeper values overriding shallower ones, and every rendered file lands
// under an output tree mirroring the leaf's path.
package stackgen

import (
	"context"

	"github.com/example/stackgen/pkg/orchestrator"
)

// Option aliases orchestrator.Option so callers can configure runs through
// the root package alone.
type Option = orchestrator.Option

// WithJobs re-exports the orchestrator's parallelism option.
func WithJobs(n int) Option {
	return orchestrator.WithJobs(n)
}

// WithExtension re-exports the template extension convention option.
func WithExtension(ext string) Option {
	return orchestrator.WithExtension(ext)
}

// Render runs the whole pipeline over the three directory roots. It is the
// simplest entry point for callers that want the CLI behaviour as a library
// call.
func Render(ctx context.Context, varsDir, templatesDir, outputDir string, options ...Option) error {
	o := orchestrator.New(options...)
	return o.Run(ctx, orchestrator.Request{
		VarsDir:      varsDir,
		TemplatesDir: templatesDir,
		OutputDir:    outputDir,
	})
}
