package jsonv

import (
	"iter"
	"math"
	"strconv"
)

// Value is a sealed interface over the JSON value types.
// Only Null, Bool, Number, String, Array and *Object implement it.
type Value interface {
	jsonValue()
}

// Null is the JSON null literal.
type Null struct{}

func (Null) jsonValue() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) jsonValue() {}

// Number is a JSON number kept as its literal text.
// The literal is preserved on serialization so large integers survive a
// round trip; comparisons go through Float64.
type Number string

func (Number) jsonValue() {}

// NewNumber returns the shortest literal that parses back to f.
// NaN and infinities have no JSON form and become 0.
func NewNumber(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number("0")
	}
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// NewInt returns the literal for an integer.
func NewInt(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// Float64 coerces the literal to a float64.
func (n Number) Float64() (float64, bool) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int64 returns the literal as an integer if it is one.
func (n Number) Int64() (int64, bool) {
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// String is a JSON string.
type String string

func (String) jsonValue() {}

// Array is an ordered JSON array.
type Array []Value

func (Array) jsonValue() {}

// Object is a JSON object with insertion-ordered keys.
// The zero value is not usable; construct with NewObject.
type Object struct {
	keys []string
	vals map[string]Value
}

func (*Object) jsonValue() {}

// Pair is a key/value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("name", String("cart")), P("count", NewInt(5)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an object holding pairs in the given order.
func NewObject(pairs ...Pair) *Object {
	o := &Object{
		keys: make([]string, 0, len(pairs)),
		vals: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		o.Set(p.Key, p.Value)
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value under key. A new key is appended to the key order; an
// existing key keeps its position. A nil value is stored as Null.
func (o *Object) Set(key string, value Value) {
	if value == nil {
		value = Null{}
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, exists := o.vals[key]; !exists {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// All iterates key/value pairs in insertion order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := NewObject()
	for k, v := range o.All() {
		c.Set(k, Clone(v))
	}
	return c
}

// Clone deep-copies any value. Scalars are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case *Object:
		return val.Clone()
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// IsNull reports whether v is the JSON null literal (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// AsFloat returns the numeric value of v when v is a Number.
func AsFloat(v Value) (float64, bool) {
	n, ok := v.(Number)
	if !ok {
		return 0, false
	}
	return n.Float64()
}
