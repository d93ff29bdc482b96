package journal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_EvictsOldest(t *testing.T) {
	r := New[int](3)
	evicted := 0
	for i := 1; i <= 5; i++ {
		evicted += r.Append(i)
	}

	assert.Equal(t, 2, evicted)
	assert.Equal(t, []int{3, 4, 5}, r.All())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
}

func TestRing_Recent(t *testing.T) {
	r := New[string](10)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Append(s)
	}

	assert.Equal(t, []string{"e", "d"}, r.Recent(2))
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, r.Recent(50))
	assert.Empty(t, r.Recent(0))
	assert.NotNil(t, r.Recent(-1))
}

func TestRing_FilterAndFind(t *testing.T) {
	r := New[int](10)
	for i := 1; i <= 6; i++ {
		r.Append(i)
	}

	assert.Equal(t, []int{2, 4, 6}, r.Filter(func(i int) bool { return i%2 == 0 }))
	assert.Empty(t, r.Filter(func(int) bool { return false }))

	v, ok := r.Find(func(i int) bool { return i > 3 })
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = r.Find(func(i int) bool { return i > 10 })
	assert.False(t, ok)
}

func TestRing_Update(t *testing.T) {
	r := New[int](2)
	next := func(last *int) int {
		if last == nil {
			return 1
		}
		return *last + 1
	}

	for i := 0; i < 3; i++ {
		r.Update(next)
	}
	v, evicted := r.Update(next)
	assert.Equal(t, 4, v)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []int{3, 4}, r.All())
}

func TestRing_AllIsACopy(t *testing.T) {
	r := New[int](3)
	r.Append(1)
	got := r.All()
	got[0] = 99
	assert.Equal(t, []int{1}, r.All())
}

func TestRing_Clear(t *testing.T) {
	r := New[int](3)
	r.Append(1)
	r.Append(2)
	r.Clear()
	assert.Equal(t, 0, r.Len())
	r.Append(3)
	assert.Equal(t, []int{3}, r.All())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := New[int](0)
	r.Append(1)
	r.Append(2)
	assert.Equal(t, []int{2}, r.All())
}

func TestRing_ConcurrentAppendAndRead(t *testing.T) {
	r := New[int](100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Append(i)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = r.Recent(10)
				_ = r.Len()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 100, r.Len())
}
