package vars

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ParseError reports a variables file whose content could not be decoded as
// YAML. Loading treats this as fatal: a broken file silently contributing an
// empty level would make override resolution impossible to reason about.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vars: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadOption customises Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used for per-file diagnostics while loading.
func WithLogger(logger *zap.Logger) LoadOption {
	return func(cfg *loadConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Table holds the merged variables of every directory level under a
// variables root, keyed by the directory's Key. The key set is closed under
// taking prefixes: every ancestor of a present key is present, down to the
// root's empty key. Built once per run and read-only afterwards.
type Table struct {
	levels   map[Key]Mapping
	maxDepth int
}

// NewTable builds a Table from pre-merged levels. Intended for callers that
// assemble levels programmatically; Load is the filesystem entry point.
func NewTable(levels map[Key]Mapping) *Table {
	t := &Table{levels: make(map[Key]Mapping, len(levels))}
	for key, level := range levels {
		t.levels[key] = level
		if depth := key.Depth(); depth > t.maxDepth {
			t.maxDepth = depth
		}
	}
	return t
}

// MaxDepth reports the length of the longest key in the table.
func (t *Table) MaxDepth() int {
	return t.maxDepth
}

// Level returns the merged mapping stored for one directory key.
func (t *Table) Level(key Key) (Mapping, bool) {
	level, ok := t.levels[key]
	return level, ok
}

// Keys returns every directory key in the table, sorted lexicographically.
func (t *Table) Keys() []Key {
	keys := make([]Key, 0, len(t.levels))
	for key := range t.levels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Leaves returns the keys at maximum depth, sorted lexicographically. One
// stack is rendered per leaf, and the sort order fixes the processing order
// so a fatal error always aborts at the same point.
func (t *Table) Leaves() []Key {
	var leaves []Key
	for key := range t.levels {
		if key.Depth() == t.maxDepth {
			leaves = append(leaves, key)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i] < leaves[j] })
	return leaves
}

// Load walks the variables root and builds the Table. Every directory
// becomes one level, even when it holds no files. Files directly inside a
// directory are decoded as YAML and deep-merged in lexicographic file-name
// order, later files overriding earlier ones on scalar conflicts.
//
// A file decoding to a non-mapping value (a bare scalar or sequence) cannot
// participate in merging; it is skipped with a warning rather than failing
// the run. A file that fails to decode at all is a fatal *ParseError.
func Load(root string, options ...LoadOption) (*Table, error) {
	cfg := &loadConfig{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	levels := make(map[Key]Mapping)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("vars: relativize %s: %w", path, err)
		}
		if entry.IsDir() {
			levels[keyFromRel(rel)] = Mapping{}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		parsed, err := readFile(path)
		if err != nil {
			return err
		}
		if parsed == nil {
			cfg.logger.Warn("skipping non-mapping variables file",
				zap.String("path", path))
			return nil
		}

		dirKey := keyFromRel(filepath.Dir(rel))
		merged, err := Merge(levels[dirKey], parsed)
		if err != nil {
			return fmt.Errorf("vars: merge %s: %w", path, err)
		}
		levels[dirKey] = merged
		cfg.logger.Debug("loaded variables file",
			zap.String("path", path),
			zap.String("level", string(dirKey)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewTable(levels), nil
}

// readFile decodes one variables file. It returns nil with no error when the
// content is valid YAML but not mapping-shaped.
func readFile(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vars: read %s: %w", path, err)
	}
	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if decoded == nil {
		// Empty documents contribute nothing but are not an error.
		return Mapping{}, nil
	}
	parsed, ok := asMapping(decoded)
	if !ok {
		return nil, nil
	}
	return parsed, nil
}

func keyFromRel(rel string) Key {
	if rel == "." || rel == "" {
		return ""
	}
	return Key(filepath.ToSlash(rel))
}
