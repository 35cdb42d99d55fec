package pipeline

import (
	"slices"
	"strings"

	"github.com/roach88/localdoc/internal/evaluator"
	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/store"
)

type sortKey struct {
	path       []string
	descending bool
}

func parseOrdering(ordering []string) []sortKey {
	keys := make([]sortKey, 0, len(ordering))
	for _, k := range ordering {
		desc := strings.HasPrefix(k, "-")
		k = strings.TrimPrefix(k, "-")
		if k == "" {
			continue
		}
		keys = append(keys, sortKey{path: strings.Split(k, "."), descending: desc})
	}
	return keys
}

// Compare orders two document bodies by ordering. Each key is a dot path,
// descending when prefixed with "-". Missing fields sort as null, and null
// sorts before everything else. Strings compare by UTF-16 code unit and
// numbers by value. Values of different types compare equal so the next
// key decides.
func Compare(a, b *jsonv.Object, ordering []string) int {
	return compareKeys(a, b, parseOrdering(ordering))
}

func compareKeys(a, b *jsonv.Object, keys []sortKey) int {
	for _, k := range keys {
		va, _ := evaluator.Resolve(a, k.path)
		vb, _ := evaluator.Resolve(b, k.path)
		c := compareValues(va, vb)
		if k.descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b jsonv.Value) int {
	aNull, bNull := jsonv.IsNull(a), jsonv.IsNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}

	switch x := a.(type) {
	case jsonv.Number:
		y, ok := b.(jsonv.Number)
		if !ok {
			return 0
		}
		fa, okA := x.Float64()
		fb, okB := y.Float64()
		if !okA || !okB {
			// Out of float64 range: incomparable, like mismatched kinds.
			return 0
		}
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case jsonv.String:
		y, ok := b.(jsonv.String)
		if !ok {
			return 0
		}
		return jsonv.CompareStrings(string(x), string(y))
	}
	return 0
}

// SortDocuments stable-sorts docs in place by ordering.
func SortDocuments(docs []store.Document, ordering []string) {
	keys := parseOrdering(ordering)
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b store.Document) int {
		return compareKeys(a.Body, b.Body, keys)
	})
}
