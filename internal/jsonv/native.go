package jsonv

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ToNative converts v into plain Go values: nil, bool, int64 or float64,
// string, []any and map[string]any. Used where a library expects
// encoding/json-style data (CEL activations, YAML output).
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		if i, ok := val.Int64(); ok {
			return i
		}
		f, _ := val.Float64()
		return f
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case *Object:
		if val == nil {
			return nil
		}
		out := make(map[string]any, val.Len())
		for k, elem := range val.All() {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}

// FromNative converts decoded Go data (from encoding/json or yaml.v3) into a
// Value. Map keys have no inherent order, so object keys are sorted by
// CompareStrings to keep the result deterministic.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return NewInt(int64(val)), nil
	case int64:
		return NewInt(val), nil
	case uint64:
		return Number(fmt.Sprintf("%d", val)), nil
	case float64:
		return NewNumber(val), nil
	case json.Number:
		return Number(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, CompareStrings)
		obj := NewObject()
		for _, k := range keys {
			conv, err := FromNative(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj.Set(k, conv)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
