package detect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupWindowInsert(t *testing.T) {
	w := NewDedupWindow(8)

	assert.True(t, w.Insert("a"))
	assert.False(t, w.Insert("a"))
	assert.True(t, w.Contains("a"))
	assert.Equal(t, 1, w.Len())
}

func TestDedupWindowEvictsOldest(t *testing.T) {
	w := NewDedupWindow(3)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, w.Insert(id))
	}

	// Inserting a fourth id evicts "a", the oldest.
	assert.True(t, w.Insert("d"))
	assert.False(t, w.Contains("a"))
	assert.True(t, w.Contains("b"))
	assert.True(t, w.Contains("c"))
	assert.True(t, w.Contains("d"))
	assert.Equal(t, 3, w.Len())

	// An evicted id may be inserted again.
	assert.True(t, w.Insert("a"))
}

func TestDedupWindowMinimumCapacity(t *testing.T) {
	w := NewDedupWindow(0)
	assert.True(t, w.Insert("a"))
	assert.True(t, w.Insert("b"))
	assert.False(t, w.Contains("a"))
}

func TestDedupWindowConcurrentInsert(t *testing.T) {
	w := NewDedupWindow(1024)

	const goroutines = 8
	results := make(chan int, goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			inserted := 0
			for i := 0; i < 100; i++ {
				if w.Insert(fmt.Sprintf("tx-%d", i)) {
					inserted++
				}
			}
			results <- inserted
		}()
	}

	total := 0
	for g := 0; g < goroutines; g++ {
		total += <-results
	}

	// Each distinct id is accepted exactly once across all goroutines.
	assert.Equal(t, 100, total)
	assert.Equal(t, 100, w.Len())
}
