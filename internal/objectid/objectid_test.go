package objectid

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestNext_Shape(t *testing.T) {
	id := NewGenerator(nil).Next()

	assert.Len(t, id, Len)
	assert.True(t, Valid(id))
	assert.Regexp(t, `^[0-9a-f]{24}$`, id)
}

func TestNext_ImmediateSuccessionDistinct(t *testing.T) {
	g := NewGenerator(nil)
	a := g.Next()
	b := g.Next()
	assert.NotEqual(t, a, b)
}

func TestNext_Layout(t *testing.T) {
	clock := fixedClock{t: time.Unix(0x5f5e1000, 0)}
	g := NewGeneratorWithIdentity(clock, [3]byte{0xaa, 0xbb, 0xcc}, 0x1234, 7)

	assert.Equal(t, "5f5e1000"+"aabbcc"+"1234"+"000007", g.Next())
	assert.Equal(t, "5f5e1000"+"aabbcc"+"1234"+"000008", g.Next())
}

func TestNext_CounterWraps(t *testing.T) {
	clock := fixedClock{t: time.Unix(1, 0)}
	g := NewGeneratorWithIdentity(clock, [3]byte{}, 0, counterMask)

	first := g.Next()
	second := g.Next()

	assert.Equal(t, "ffffff", first[18:])
	assert.Equal(t, "000000", second[18:])
}

func TestNext_ConcurrentUnique(t *testing.T) {
	g := NewGenerator(fixedClock{t: time.Unix(1700000000, 0)})
	const workers = 16
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			local := make([]string, perWorker)
			for j := range local {
				local[j] = g.Next()
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestTimestamp(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := NewGenerator(fixedClock{t: when}).Next()

	got, ok := Timestamp(id)
	require.True(t, ok)
	assert.Equal(t, when, got)

	_, ok = Timestamp("not-an-id")
	assert.False(t, ok)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("507f1f77bcf86cd799439011"))
	assert.True(t, Valid("507F1F77BCF86CD799439011"))
	assert.False(t, Valid("507f1f77bcf86cd79943901"))
	assert.False(t, Valid("507f1f77bcf86cd79943901z"))
	assert.False(t, Valid(""))
}
