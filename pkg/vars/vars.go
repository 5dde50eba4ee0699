package vars

import "strings"

// keySeparator joins path segments inside a Key. Keys always use forward
// slashes regardless of the host separator so they stay stable across
// platforms and sort lexicographically by segment.
const keySeparator = "/"

// Key identifies one directory level inside the variables hierarchy as the
// slash-joined sequence of path segments relative to the variables root. The
// root itself is the empty Key.
type Key string

// KeyOf builds a Key from individual path segments.
func KeyOf(segments ...string) Key {
	return Key(strings.Join(segments, keySeparator))
}

// Segments splits the key back into its path segments. The root key yields
// nil.
func (k Key) Segments() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), keySeparator)
}

// Depth reports how many segments the key has; the root has depth zero.
func (k Key) Depth() int {
	if k == "" {
		return 0
	}
	return strings.Count(string(k), keySeparator) + 1
}

// IsRoot reports whether the key addresses the variables root.
func (k Key) IsRoot() bool {
	return k == ""
}

// Parent returns the key with its last segment dropped. The parent of a
// depth-one key is the root; the root is its own fixed point.
func (k Key) Parent() Key {
	idx := strings.LastIndex(string(k), keySeparator)
	if idx < 0 {
		return ""
	}
	return k[:idx]
}

// Mapping is a parsed variables document: string keys with scalar, sequence,
// or nested Mapping values. Nested levels decoded from YAML arrive as
// map[string]any and are treated interchangeably.
type Mapping = map[string]any

// asMapping reports whether a value is mapping-shaped for merge purposes.
func asMapping(v any) (Mapping, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
