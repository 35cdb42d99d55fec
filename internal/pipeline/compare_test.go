package pipeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/store"
)

func counterValue(c prometheus.Collector) float64 {
	return promtest.ToFloat64(c)
}

func obj(s string) *jsonv.Object { return jsonv.MustParseObject(s) }

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		ordering []string
		want     int
	}{
		{"numbers ascending", `{"n":1}`, `{"n":2}`, []string{"n"}, -1},
		{"numbers descending", `{"n":1}`, `{"n":2}`, []string{"-n"}, 1},
		{"int and float equal", `{"n":2}`, `{"n":2.0}`, []string{"n"}, 0},
		{"strings", `{"s":"apple"}`, `{"s":"banana"}`, []string{"s"}, -1},
		{"utf16 order", `{"s":"😀"}`, `{"s":"｡"}`, []string{"s"}, -1},
		{"missing before value", `{}`, `{"n":0}`, []string{"n"}, -1},
		{"null before value", `{"n":null}`, `{"n":"x"}`, []string{"n"}, -1},
		{"missing equals null", `{}`, `{"n":null}`, []string{"n"}, 0},
		{"null first even descending flips", `{}`, `{"n":0}`, []string{"-n"}, 1},
		{"cross type equal", `{"n":1}`, `{"n":"1"}`, []string{"n"}, 0},
		{"cross type falls through", `{"n":1,"t":"b"}`, `{"n":"1","t":"a"}`, []string{"n", "t"}, 1},
		{"bools unordered", `{"b":true}`, `{"b":false}`, []string{"b"}, 0},
		{"overflow is incomparable", `{"n":1e400}`, `{"n":5}`, []string{"n"}, 0},
		{"overflow either side", `{"n":-3}`, `{"n":-1e400}`, []string{"n"}, 0},
		{"overflow falls through", `{"n":1e400,"t":"a"}`, `{"n":5,"t":"b"}`, []string{"n", "t"}, -1},
		{"dot path", `{"a":{"b":5}}`, `{"a":{"b":4}}`, []string{"a.b"}, 1},
		{"array index path", `{"a":[1,9]}`, `{"a":[1,3]}`, []string{"a.1"}, 1},
		{"second key breaks tie", `{"n":1,"m":2}`, `{"n":1,"m":1}`, []string{"n", "m"}, 1},
		{"empty key ignored", `{"n":1}`, `{"n":2}`, []string{"-", "n"}, -1},
		{"no ordering", `{"n":1}`, `{"n":2}`, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(obj(tt.a), obj(tt.b), tt.ordering))
		})
	}
}

func TestSortDocuments(t *testing.T) {
	docs := []store.Document{
		{ID: "1", Body: obj(`{"g":"b","n":2}`)},
		{ID: "2", Body: obj(`{"g":"a","n":2}`)},
		{ID: "3", Body: obj(`{"n":1}`)},
		{ID: "4", Body: obj(`{"g":"a","n":1}`)},
		{ID: "5", Body: obj(`{"g":"b","n":1}`)},
	}

	SortDocuments(docs, []string{"g", "-n"})

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"3", "2", "4", "1", "5"}, ids)
}

func TestSortDocuments_OverflowKeepsScanOrder(t *testing.T) {
	docs := []store.Document{
		{ID: "big", Body: obj(`{"n":1e400}`)},
		{ID: "five", Body: obj(`{"n":5}`)},
	}
	SortDocuments(docs, []string{"n"})
	assert.Equal(t, "big", docs[0].ID)
	assert.Equal(t, "five", docs[1].ID)

	SortDocuments(docs, []string{"-n"})
	assert.Equal(t, "big", docs[0].ID)
}

func TestSortDocuments_NoOrderingKeepsOrder(t *testing.T) {
	docs := []store.Document{
		{ID: "b", Body: obj(`{"n":2}`)},
		{ID: "a", Body: obj(`{"n":1}`)},
	}
	SortDocuments(docs, nil)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
}
