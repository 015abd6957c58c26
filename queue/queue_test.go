package queue

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueueAscending(t *testing.T) {
	pq := &PriorityQueue{Order: false}
	heap.Init(pq)

	heap.Push(pq, &PriorityQueueItem{Point: 1, Distance: 3.0})
	heap.Push(pq, &PriorityQueueItem{Point: 2, Distance: 1.0})
	heap.Push(pq, &PriorityQueueItem{Point: 3, Distance: 2.0})

	top, ok := pq.Top().(*PriorityQueueItem)
	require.True(t, ok)
	assert.Equal(t, 2, top.Point)

	var order []int
	for pq.Len() > 0 {
		item, ok := heap.Pop(pq).(*PriorityQueueItem)
		require.True(t, ok)
		order = append(order, item.Point)
	}

	assert.Equal(t, []int{2, 3, 1}, order)
}

func TestPriorityQueueDescending(t *testing.T) {
	pq := &PriorityQueue{Order: true}
	heap.Init(pq)

	heap.Push(pq, &PriorityQueueItem{Point: 1, Distance: 3.0})
	heap.Push(pq, &PriorityQueueItem{Point: 2, Distance: 1.0})
	heap.Push(pq, &PriorityQueueItem{Point: 3, Distance: 2.0})

	top, ok := pq.Top().(*PriorityQueueItem)
	require.True(t, ok)
	assert.Equal(t, 1, top.Point)

	var order []int
	for pq.Len() > 0 {
		item, ok := heap.Pop(pq).(*PriorityQueueItem)
		require.True(t, ok)
		order = append(order, item.Point)
	}

	assert.Equal(t, []int{1, 3, 2}, order)
}

func TestPriorityQueueTieBreak(t *testing.T) {
	pq := &PriorityQueue{Order: false}
	heap.Init(pq)

	heap.Push(pq, &PriorityQueueItem{Point: 7, Distance: 1.0})
	heap.Push(pq, &PriorityQueueItem{Point: 3, Distance: 1.0})
	heap.Push(pq, &PriorityQueueItem{Point: 5, Distance: 1.0})

	var order []int
	for pq.Len() > 0 {
		item, ok := heap.Pop(pq).(*PriorityQueueItem)
		require.True(t, ok)
		order = append(order, item.Point)
	}

	assert.Equal(t, []int{3, 5, 7}, order)
}

func TestPriorityQueuePopEmpty(t *testing.T) {
	pq := &PriorityQueue{}
	assert.Nil(t, pq.Pop())
}
