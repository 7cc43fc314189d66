package mol

import (
	"fmt"
	"strings"
)

// ValidatePath checks that p is a non-empty dotted path with no empty
// segments ("a.b.c").
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	for _, seg := range strings.Split(p, ".") {
		if seg == "" {
			return fmt.Errorf("path %q has an empty segment", p)
		}
	}
	return nil
}

// Get returns the value at a dotted path inside nested maps.
// Numeric segments index into lists ("sites.0.xyz").
func Get(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, ok := listIndex(seg, len(node))
			if !ok {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a value exists at the dotted path. A present key
// holding null counts as present.
func Has(root map[string]any, path string) bool {
	_, ok := Get(root, path)
	return ok
}

// Set writes value at a dotted path, creating intermediate maps. An
// intermediate that exists but is not a map is replaced.
func Set(root map[string]any, path string, value any) {
	segs := strings.Split(path, ".")
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
}

func listIndex(seg string, n int) (int, bool) {
	if seg == "" {
		return 0, false
	}
	idx := 0
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
		if idx >= n {
			return 0, false
		}
	}
	return idx, true
}
