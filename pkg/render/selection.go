package render

import (
	"fmt"
	"strings"

	"github.com/example/stackgen/pkg/vars"
)

// Reserved configuration keys recognised during selection.
const (
	// TemplatesKey names an explicit allow-list of templates to render.
	TemplatesKey = "templates"
	// ExcludeKey names templates removed from the candidate set.
	ExcludeKey = "exclude"
)

// PartialsPrefix is the reserved template namespace for includable
// fragments. Templates under it are never rendered directly, even when an
// allow-list names them.
const PartialsPrefix = "partials/"

// Select computes the ordered set of template identifiers to render for one
// resolved stack configuration.
//
// When the configuration carries TemplatesKey, the candidates are exactly
// those names in listed order, each mapped through ext (the conventional
// template file extension; empty disables the mapping). Otherwise the
// candidates are every identifier in available. Names under ExcludeKey are
// removed with the same extension mapping, and removing an absent name is a
// no-op. Identifiers under PartialsPrefix are dropped unconditionally.
func Select(resolved vars.Mapping, available []string, ext string) []string {
	var candidates []string
	if listed, ok := stringList(resolved[TemplatesKey]); ok {
		candidates = make([]string, 0, len(listed))
		for _, name := range listed {
			candidates = append(candidates, withExtension(name, ext))
		}
	} else {
		candidates = append(candidates, available...)
	}

	if excluded, ok := stringList(resolved[ExcludeKey]); ok {
		drop := make(map[string]struct{}, len(excluded))
		for _, name := range excluded {
			drop[withExtension(name, ext)] = struct{}{}
		}
		kept := candidates[:0]
		for _, name := range candidates {
			if _, skip := drop[name]; !skip {
				kept = append(kept, name)
			}
		}
		candidates = kept
	}

	selected := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if strings.HasPrefix(name, PartialsPrefix) {
			continue
		}
		selected = append(selected, name)
	}
	return selected
}

// stringList coerces a configuration value into a list of names. YAML
// sequences decode as []any; scalar entries are stringified the way they
// were written.
func stringList(value any) ([]string, bool) {
	items, ok := value.([]any)
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			names = append(names, s)
			continue
		}
		names = append(names, fmt.Sprintf("%v", item))
	}
	return names, true
}

func withExtension(name, ext string) string {
	if ext == "" || strings.HasSuffix(name, ext) {
		return name
	}
	return name + ext
}
