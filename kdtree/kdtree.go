// Package kdtree implements a static k-d tree over 3-dimensional points with
// Minkowski (Lp) distances. Trees are built once and queried many times;
// queries are read-only and safe for concurrent use.
package kdtree

import (
	"container/heap"
	"math"
	"sort"

	"github.com/hupe1980/neighgo/metric"
	"github.com/hupe1980/neighgo/queue"
)

// Options contains build parameters for a Tree.
type Options struct {
	// LeafSize is the maximum number of points stored in a single leaf.
	LeafSize int

	// NormOrder is the Minkowski order p of the distance, fixed per tree.
	NormOrder int
}

// DefaultOptions holds the default build parameters.
var DefaultOptions = Options{
	LeafSize:  16,
	NormOrder: 2,
}

type node struct {
	axis  int
	split float64
	left  *node
	right *node

	// leaf payload: points idx[start:end]
	leaf  bool
	start int
	end   int
}

// Tree is a static k-d tree.
type Tree struct {
	points   [][3]float64
	idx      []int
	p        int
	leafSize int
	root     *node
}

// New builds a Tree over the given points. The points are copied.
func New(points [][3]float64, optFns ...func(o *Options)) (*Tree, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := metric.ValidateOrder(opts.NormOrder); err != nil {
		return nil, err
	}

	if opts.LeafSize < 1 {
		opts.LeafSize = DefaultOptions.LeafSize
	}

	t := &Tree{
		points:   make([][3]float64, len(points)),
		idx:      make([]int, len(points)),
		p:        opts.NormOrder,
		leafSize: opts.LeafSize,
	}
	copy(t.points, points)
	for i := range t.idx {
		t.idx[i] = i
	}

	if len(points) > 0 {
		t.root = t.build(0, len(points))
	}

	return t, nil
}

// Len returns the number of indexed points.
func (t *Tree) Len() int {
	return len(t.points)
}

// NormOrder returns the Minkowski order the tree was built with.
func (t *Tree) NormOrder() int {
	return t.p
}

func (t *Tree) build(start, end int) *node {
	if end-start <= t.leafSize {
		return &node{leaf: true, start: start, end: end}
	}

	axis := t.spreadAxis(start, end)

	seg := t.idx[start:end]
	sort.Slice(seg, func(i, j int) bool {
		return t.points[seg[i]][axis] < t.points[seg[j]][axis]
	})

	mid := (start + end) / 2

	// Capture the split value before recursing: the child builds re-sort
	// idx[start:mid] and idx[mid:end] along their own axes, so idx[mid] no
	// longer names the median of this node afterwards.
	split := t.points[t.idx[mid]][axis]

	return &node{
		axis:  axis,
		split: split,
		left:  t.build(start, mid),
		right: t.build(mid, end),
	}
}

// spreadAxis picks the axis with the widest coordinate range.
func (t *Tree) spreadAxis(start, end int) int {
	var lo, hi [3]float64
	for d := 0; d < 3; d++ {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	for _, i := range t.idx[start:end] {
		for d := 0; d < 3; d++ {
			if t.points[i][d] < lo[d] {
				lo[d] = t.points[i][d]
			}
			if t.points[i][d] > hi[d] {
				hi[d] = t.points[i][d]
			}
		}
	}

	axis := 0
	best := hi[0] - lo[0]
	for d := 1; d < 3; d++ {
		if spread := hi[d] - lo[d]; spread > best {
			best = spread
			axis = d
		}
	}

	return axis
}

// Query returns the k nearest points to q with distance <= upperBound,
// sorted by ascending distance with index tie-break. The result is always
// padded to exactly k entries: empty slots report +Inf distance and the
// point count as index. Pass math.Inf(1) as upperBound for an unbounded
// search.
func (t *Tree) Query(q [3]float64, k int, upperBound float64) ([]float64, []int) {
	if k <= 0 {
		return nil, nil
	}

	distances := make([]float64, k)
	indices := make([]int, k)
	for i := 0; i < k; i++ {
		distances[i] = math.Inf(1)
		indices[i] = len(t.points)
	}

	if t.root == nil {
		return distances, indices
	}

	// Max-heap over the current best k so the worst candidate is replaceable
	// in O(log k).
	best := &queue.PriorityQueue{Order: true}
	t.search(t.root, q, k, upperBound, best)

	for best.Len() > 0 {
		item, _ := heap.Pop(best).(*queue.PriorityQueueItem)
		distances[best.Len()] = item.Distance
		indices[best.Len()] = item.Point
	}

	return distances, indices
}

func (t *Tree) search(n *node, q [3]float64, k int, upperBound float64, best *queue.PriorityQueue) {
	if n.leaf {
		for _, i := range t.idx[n.start:n.end] {
			d := metric.Distance(t.points[i], q, t.p)
			if d > upperBound {
				continue
			}
			if best.Len() < k {
				heap.Push(best, &queue.PriorityQueueItem{Point: i, Distance: d})
				continue
			}
			top, ok := best.Top().(*queue.PriorityQueueItem)
			if !ok {
				continue
			}
			if d < top.Distance || (d == top.Distance && i < top.Point) {
				heap.Pop(best)
				heap.Push(best, &queue.PriorityQueueItem{Point: i, Distance: d})
			}
		}
		return
	}

	near, far := n.left, n.right
	if q[n.axis] >= n.split {
		near, far = far, near
	}

	t.search(near, q, k, upperBound, best)

	// The axis gap lower-bounds any Lp distance to points behind the split
	// plane, so the far side only needs a visit when the gap is within the
	// current limit.
	limit := upperBound
	if best.Len() == k {
		if top, ok := best.Top().(*queue.PriorityQueueItem); ok && top.Distance < limit {
			limit = top.Distance
		}
	}
	if math.Abs(q[n.axis]-n.split) <= limit {
		t.search(far, q, k, upperBound, best)
	}
}
