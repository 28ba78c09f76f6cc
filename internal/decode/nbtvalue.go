package decode

import (
	"errors"

	"github.com/jason-green-io/papyri/internal/minecraft"
)

// NBT integer tags decode to different Go widths depending on the tag the
// game used when it wrote the record. These helpers flatten the zoo.

func intField(tree map[string]any, key string) (int, bool) {
	switch v := tree[key].(type) {
	case byte:
		return int(int8(v)), true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	}
	return 0, false
}

func boolField(tree map[string]any, key string) (bool, bool) {
	v, ok := intField(tree, key)
	return v != 0, ok
}

func listField(tree map[string]any, key string) ([]map[string]any, bool) {
	switch v := tree[key].(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if compound, ok := e.(map[string]any); ok {
				out = append(out, compound)
			}
		}
		return out, true
	}
	return nil, false
}

var errNoDimension = errors.New("no dimension field")

// dimensionField normalizes the dimension, which records store either as a
// legacy numeric code or as a fully-qualified resource name.
func dimensionField(tree map[string]any) (minecraft.Dimension, error) {
	if name, ok := tree["dimension"].(string); ok {
		return minecraft.DimensionFromName(name)
	}
	if code, ok := intField(tree, "dimension"); ok {
		return minecraft.DimensionFromCode(code)
	}
	return 0, errNoDimension
}
