package merger

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scored struct {
	id    int
	score float64
}

func higher(a, b scored) bool { return a.score > b.score }

func ids(items []scored) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestTopKKeepsBestInOrder(t *testing.T) {
	items := []scored{{1, 0.2}, {2, 0.9}, {3, 0.5}, {4, 0.9}, {5, 0.1}}

	assert.Equal(t, []int{2, 4, 3}, ids(TopK(items, 3, higher)))
	assert.Equal(t, []int{2}, ids(TopK(items, 1, higher)))
	assert.Equal(t, []int{2, 4, 3, 1, 5}, ids(TopK(items, 0, higher)))
	assert.Equal(t, []int{2, 4, 3, 1, 5}, ids(TopK(items, 10, higher)))
	assert.Empty(t, TopK([]scored{}, 3, higher))
}

func TestTopKTiesKeepInputOrder(t *testing.T) {
	items := []scored{{7, 1}, {3, 1}, {9, 1}, {1, 1}}

	assert.Equal(t, []int{7, 3}, ids(TopK(items, 2, higher)))
	assert.Equal(t, []int{7, 3, 9}, ids(TopK(items, 3, higher)))
}

func TestTopKMatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := make([]scored, 500)
	for i := range items {
		items[i] = scored{id: i, score: float64(rng.Intn(20))}
	}
	sorted := TopK(items, 0, higher)
	for _, k := range []int{1, 5, 50, 499} {
		assert.Equal(t, ids(sorted[:k]), ids(TopK(items, k, higher)), k)
	}
	assert.True(t, slices.IsSortedFunc(sorted, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	}))
}

func TestTopKDoesNotModifyInput(t *testing.T) {
	items := []scored{{1, 0.1}, {2, 0.5}}
	TopK(items, 0, higher)
	TopK(items, 1, higher)
	assert.Equal(t, []int{1, 2}, ids(items))
}

func BenchmarkTopK(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	items := make([]scored, 100000)
	for i := range items {
		items[i] = scored{id: i, score: rng.Float64()}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TopK(items, 1000, higher)
	}
}
