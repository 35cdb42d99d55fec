package harness

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/roach88/localdoc/internal/jsonv"
)

// JSONObject is a JSON object written inline in scenario YAML.
// Key order is kept as written.
type JSONObject struct {
	*jsonv.Object
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *JSONObject) UnmarshalYAML(node *yaml.Node) error {
	v, err := nodeToValue(node)
	if err != nil {
		return err
	}
	obj, ok := v.(*jsonv.Object)
	if !ok {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	o.Object = obj
	return nil
}

func nodeToValue(n *yaml.Node) (jsonv.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return jsonv.Null{}, nil
		}
		return nodeToValue(n.Content[0])
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	case yaml.MappingNode:
		obj := jsonv.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := nodeToValue(val)
			if err != nil {
				return nil, err
			}
			obj.Set(key.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(jsonv.Array, 0, len(n.Content))
		for _, elem := range n.Content {
			v, err := nodeToValue(elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarToValue(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func scalarToValue(n *yaml.Node) (jsonv.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return jsonv.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return jsonv.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return jsonv.NewInt(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("line %d: %s is not a JSON number", n.Line, n.Value)
		}
		return jsonv.NewNumber(f), nil
	default:
		return jsonv.String(n.Value), nil
	}
}
