package vars

import "fmt"

// Resolve cascades every ancestor level of leaf, root first, into one fully
// resolved mapping. The ancestor chain is collected by walking leaf-to-root
// and then folded in reverse so that each deeper level is merged as the
// override pass: the leaf wins every conflict, the root only supplies
// defaults. No level in the table is mutated; each call builds an
// independent result.
//
// Every ancestor of a loaded key is guaranteed present (the walk visits
// parents before children), so a missing level means the table was built by
// hand with a hole in it and is reported as such.
func (t *Table) Resolve(leaf Key) (Mapping, error) {
	chain := make([]Key, 0, leaf.Depth()+1)
	for key := leaf; ; key = key.Parent() {
		chain = append(chain, key)
		if key.IsRoot() {
			break
		}
	}

	resolved := Mapping{}
	for i := len(chain) - 1; i >= 0; i-- {
		level, ok := t.levels[chain[i]]
		if !ok {
			return nil, fmt.Errorf("vars: level %q missing from table while resolving %q", chain[i], leaf)
		}
		merged, err := Merge(resolved, level)
		if err != nil {
			return nil, fmt.Errorf("vars: resolve %q: %w", leaf, err)
		}
		resolved = merged
	}
	return resolved, nil
}
