package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := New[int](10, nil)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	var got []int
	q.DrainTo(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, q.Len())
}

func TestQueueDropsOldestOnOverflow(t *testing.T) {
	var dropped []int
	q := New[int](2, func(v int) { dropped = append(dropped, v) })

	q.Push(1)
	q.Push(2)
	q.Push(3) // should drop 1

	assert.Equal(t, []int{1}, dropped)

	var got []int
	q.DrainTo(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{2, 3}, got)
}

func TestQueueLen(t *testing.T) {
	q := New[string](5, nil)
	assert.Equal(t, 0, q.Len())
	q.Push("a")
	q.Push("b")
	assert.Equal(t, 2, q.Len())
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := New[int](0, nil)
	for i := 0; i < defaultCapacity; i++ {
		q.Push(i)
	}
	assert.Equal(t, defaultCapacity, q.Len())
	q.Push(defaultCapacity) // overflow, drops the oldest (0)
	assert.Equal(t, defaultCapacity, q.Len())
}
