package evaluator

import (
	"strconv"

	"github.com/roach88/localdoc/internal/jsonv"
)

// Resolve walks a dot-notation path through doc.
//
// Each segment indexes an array when it parses as an integer and looks up
// an object key otherwise. found is false only when an object lacks a
// key along the way. A null intermediate, an out-of-range index or a
// segment applied to the wrong type yields (Null, true).
func Resolve(doc *jsonv.Object, path []string) (value jsonv.Value, found bool) {
	var cur jsonv.Value = doc
	if doc == nil {
		return nil, false
	}

	for _, seg := range path {
		switch node := cur.(type) {
		case jsonv.Null:
			return jsonv.Null{}, true
		case jsonv.Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return jsonv.Null{}, true
			}
			cur = node[idx]
		case *jsonv.Object:
			next, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return jsonv.Null{}, true
		}
	}
	return cur, true
}
