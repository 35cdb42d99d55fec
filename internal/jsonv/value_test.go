package jsonv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObject_SetKeepsPositionOfExistingKey(t *testing.T) {
	obj := NewObject(P("a", NewInt(1)), P("b", NewInt(2)))
	obj.Set("a", String("x"))
	obj.Set("c", Bool(true))

	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
	v, _ := obj.Get("a")
	assert.Equal(t, String("x"), v)
}

func TestObject_Delete(t *testing.T) {
	obj := NewObject(P("a", NewInt(1)), P("b", NewInt(2)), P("c", NewInt(3)))
	obj.Delete("b")
	obj.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, obj.Keys())
	assert.False(t, obj.Has("b"))
}

func TestObject_NilSafeReads(t *testing.T) {
	var obj *Object
	assert.Equal(t, 0, obj.Len())
	assert.False(t, obj.Has("x"))
	assert.Nil(t, obj.Keys())
	for range obj.All() {
		t.Fatal("nil object must not yield")
	}
}

func TestObject_CloneIsDeep(t *testing.T) {
	orig := MustParseObject(`{"a":{"b":[1,2]}}`)
	c := orig.Clone()

	inner, _ := c.Get("a")
	inner.(*Object).Set("b", String("changed"))

	assert.True(t, Equal(orig, MustParseObject(`{"a":{"b":[1,2]}}`)))
}

func TestNumber_Coercion(t *testing.T) {
	f, ok := Number("2.5").Float64()
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = Number("2.5").Int64()
	assert.False(t, ok)

	assert.Equal(t, Number("3"), NewNumber(3))
	assert.Equal(t, Number("-42"), NewInt(-42))
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int and float spelling", Number("1"), Number("1.0"), true},
		{"different numbers", Number("1"), Number("2"), false},
		{"number vs string", Number("1"), String("1"), false},
		{"null vs nil", Null{}, nil, true},
		{"null vs false", Null{}, Bool(false), false},
		{"arrays positional", Array{NewInt(1), NewInt(2)}, Array{NewInt(2), NewInt(1)}, false},
		{"objects ignore key order", MustParseObject(`{"a":1,"b":2}`), MustParseObject(`{"b":2,"a":1}`), true},
		{"objects differ in keys", MustParseObject(`{"a":1}`), MustParseObject(`{"a":1,"b":2}`), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
		})
	}
}

func TestCompareStrings_UTF16Order(t *testing.T) {
	// U+FF61 is a single UTF-16 unit (0xFF61); U+1F600 encodes as the
	// surrogate pair 0xD83D 0xDE00, so it sorts first in UTF-16 but last in UTF-8.
	assert.Equal(t, -1, CompareStrings("\U0001F600", "｡"))
	assert.True(t, "\U0001F600" > "｡", "byte order disagrees with UTF-16 order")
	assert.Equal(t, 1, CompareStrings("｡", "\U0001F600"))
	assert.Equal(t, 0, CompareStrings("abc", "abc"))
	assert.Equal(t, -1, CompareStrings("ab", "abc"))
	assert.Equal(t, 1, CompareStrings("b", "abc"))
}
