package fakearango

import (
	"cmp"
	"fmt"
	"strings"
)

// attribute resolves a dotted attribute path such as address.city
func attribute(v any, path string) (any, bool) {
	current := v
	for _, name := range strings.Split(path, ".") {
		m, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = m[name]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case document:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// typeRank orders values of different types the way AQL does: null < bool < number < string
// < array < object
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := v.(bool); ok {
		return 1
	}
	if _, ok := asNumber(v); ok {
		return 2
	}
	if _, ok := v.(string); ok {
		return 3
	}
	if _, ok := v.([]any); ok {
		return 4
	}
	return 5
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case 1:
		ba, bb := a.(bool), b.(bool)
		if ba == bb {
			return 0
		}
		if !ba {
			return -1
		}
		return 1
	case 2:
		na, _ := asNumber(a)
		nb, _ := asNumber(b)
		return cmp.Compare(na, nb)
	case 3:
		return cmp.Compare(a.(string), b.(string))
	case 4:
		la, lb := a.([]any), b.([]any)
		for i := 0; i < min(len(la), len(lb)); i++ {
			if c := compareValues(la[i], lb[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(la), len(lb))
	case 5:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}

	return 0
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if compareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

// merge applies patch to target the way a document update does. Nested objects are merged
// when mergeObjects is set, null values remove attributes unless keepNull is set.
func merge(target, patch map[string]any, keepNull, mergeObjects bool) map[string]any {
	result := make(map[string]any, len(target))
	for k, v := range target {
		result[k] = v
	}

	for k, v := range patch {
		if v == nil && !keepNull {
			delete(result, k)
			continue
		}

		if mergeObjects {
			existing, ok1 := asObject(result[k])
			incoming, ok2 := asObject(v)
			if ok1 && ok2 {
				result[k] = merge(existing, incoming, keepNull, mergeObjects)
				continue
			}
		}

		result[k] = v
	}

	return result
}
