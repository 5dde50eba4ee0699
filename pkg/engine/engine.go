// Package engine defines the template-engine boundary. The pipeline treats
// the engine as a black box: it can enumerate the templates it knows about
// and render one of them against a flat variables environment. Template
// syntax, loading, and variable lookup semantics all live behind this seam.
package engine

// Engine is implemented by template backends. List reports every template
// identifier available from the engine's source, relative slash-separated
// paths, in a deterministic order. Render produces the text of one named
// template using env as the rendering context; any parse, load, or
// execution failure is returned as-is for the caller to classify.
type Engine interface {
	List() ([]string, error)
	Render(name string, env map[string]any) (string, error)
}
