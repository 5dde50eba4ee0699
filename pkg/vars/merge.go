package vars

import "fmt"

// StructuralError reports a merge conflict where one side of a key holds a
// nested mapping and the other holds a scalar or sequence. The two shapes
// cannot be reconciled without guessing, so the merge refuses.
type StructuralError struct {
	// Key is the dotted path of the conflicting key, relative to the
	// mappings handed to Merge.
	Key      string
	Base     any
	Override any
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("vars: incompatible structure at %q: %v vs. %v", e.Key, e.Base, e.Override)
}

// Merge deep-merges override into base and returns the combined mapping.
// Neither input is mutated. Keys present on only one side are copied through.
// Keys where both sides hold mappings merge recursively; keys where neither
// side holds a mapping are replaced wholesale by the override value
// (sequences included, no concatenation). A mapping on exactly one side is a
// StructuralError.
//
// The same function serves sibling-file merging inside one directory and the
// root-to-leaf cascade; callers only choose operand order.
func Merge(base, override Mapping) (Mapping, error) {
	return mergeAt("", base, override)
}

func mergeAt(path string, base, override Mapping) (Mapping, error) {
	merged := make(Mapping, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, overrideValue := range override {
		baseValue, exists := merged[key]
		if !exists {
			merged[key] = overrideValue
			continue
		}
		baseMap, baseIsMap := asMapping(baseValue)
		overrideMap, overrideIsMap := asMapping(overrideValue)
		switch {
		case baseIsMap && overrideIsMap:
			child, err := mergeAt(childPath(path, key), baseMap, overrideMap)
			if err != nil {
				return nil, err
			}
			merged[key] = child
		case baseIsMap != overrideIsMap:
			return nil, &StructuralError{
				Key:      childPath(path, key),
				Base:     baseValue,
				Override: overrideValue,
			}
		default:
			merged[key] = overrideValue
		}
	}
	return merged, nil
}

func childPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
