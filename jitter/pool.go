package jitter

import "github.com/llxxmm1/rtpjitter/arena"

// list is the node pool: a loosely sorted doubly linked list of
// packet slots backed by an arena.  It carries no lock of its own;
// every method here assumes the caller already holds the Buffer's JB
// lock for the duration of the structural mutation (allocate, hide,
// sort, promote), with the arena's own internal lock serializing slot
// access underneath that.
type list struct {
	pool *arena.Pool[node]

	head       arena.Index // zero means empty
	count      int         // nodes ever linked into the list
	hidesSince int         // hides since the list was last resorted
}

func newList(pool *arena.Pool[node]) *list {
	return &list{pool: pool}
}

func (l *list) at(idx arena.Index) *node {
	return l.pool.At(idx)
}

// alloc returns a visible node ready to be stored into: it reuses the
// first hidden node it finds walking from the head, or extends the
// arena and links a fresh node at the head.
func (l *list) alloc(parent *Buffer) (arena.Index, *node) {
	for idx := l.head; idx != 0; {
		n := l.at(idx)
		if !n.visible {
			n.visible = true
			return idx, n
		}
		idx = n.next
	}

	idx, n := l.pool.Alloc()
	n.parent = parent
	l.linkHead(idx, n)
	l.count++
	n.visible = true
	return idx, n
}

// linkHead inserts idx at the head of the list.
func (l *list) linkHead(idx arena.Index, n *node) {
	n.prev = 0
	n.next = l.head
	if l.head != 0 {
		l.at(l.head).prev = idx
	}
	l.head = idx
}

// unlink removes idx from the list's link structure without touching
// its visibility; used only while relinking during promote/sort.
func (l *list) unlink(idx arena.Index, n *node) {
	if n.prev != 0 {
		l.at(n.prev).next = n.next
	} else {
		l.head = n.next
	}
	if n.next != 0 {
		l.at(n.next).prev = n.prev
	}
}

// promote moves idx to the head of the list.  Used after hiding a
// node, so that the next alloc() finds it with a short walk.
func (l *list) promote(idx arena.Index) {
	n := l.at(idx)
	if l.head == idx {
		return
	}
	l.unlink(idx, n)
	l.linkHead(idx, n)
}

// hide marks idx as reusable and promotes it to the head.  Sorting is
// deferred: the list only needs a full resort once a batch of hides
// has left it more than loosely ordered, which maybeSort below
// decides.
func (l *list) hide(idx arena.Index) {
	n := l.at(idx)
	n.hide()
	l.promote(idx)
	l.hidesSince++
}

// maybeSort resorts the list once enough hides have accumulated since
// the last sort, keeping the steady-state per-packet cost O(1) while
// still bounding how far the list can drift from its (visible desc,
// seq asc) order.
func (l *list) maybeSort() {
	const resortBatch = 16
	if l.hidesSince < resortBatch {
		return
	}
	l.sort()
	l.hidesSince = 0
}

// sort performs a stable top-down mergesort of the list by
// (visible desc, seq asc), the classic linked-list mergesort: no
// auxiliary array, O(n log n), stable.  It is run only after a batch
// of hides so the common per-packet paths stay O(1) in the list.
func (l *list) sort() {
	if l.head == 0 {
		return
	}
	l.head = l.mergeSort(l.head)
	// relink prev pointers.
	var prev arena.Index
	for idx := l.head; idx != 0; {
		n := l.at(idx)
		n.prev = prev
		prev = idx
		idx = n.next
	}
}

func less(a, b *node) bool {
	if a.visible != b.visible {
		return !a.visible // hidden (false) sorts first
	}
	if !a.visible {
		return false // both hidden, order doesn't matter; stable merge preserves it
	}
	return seqCompare(a.seq, b.seq) < 0
}

// mergeSort sorts the singly-linked chain reachable via next starting
// at head, returning the new head.  prev links are rebuilt by the
// caller afterward.
func (l *list) mergeSort(head arena.Index) arena.Index {
	if head == 0 || l.at(head).next == 0 {
		return head
	}

	mid := l.split(head)
	left := l.mergeSort(head)
	right := l.mergeSort(mid)
	return l.merge(left, right)
}

// split breaks the chain at head into two, using the slow/fast
// pointer technique, and returns the head of the second half.
func (l *list) split(head arena.Index) arena.Index {
	slow, fast := head, head
	for {
		fastNext := l.at(fast).next
		if fastNext == 0 {
			break
		}
		fast = fastNext
		fastNext = l.at(fast).next
		if fastNext == 0 {
			break
		}
		fast = fastNext
		slow = l.at(slow).next
	}
	mid := l.at(slow).next
	l.at(slow).next = 0
	return mid
}

func (l *list) merge(a, b arena.Index) arena.Index {
	var head, tail arena.Index
	push := func(idx arena.Index) {
		if head == 0 {
			head = idx
		} else {
			l.at(tail).next = idx
		}
		tail = idx
	}

	for a != 0 && b != 0 {
		if less(l.at(a), l.at(b)) {
			next := l.at(a).next
			push(a)
			a = next
		} else {
			next := l.at(b).next
			push(b)
			b = next
		}
	}
	for a != 0 {
		next := l.at(a).next
		push(a)
		a = next
	}
	for b != 0 {
		next := l.at(b).next
		push(b)
		b = next
	}
	if tail != 0 {
		l.at(tail).next = 0
	}
	return head
}

// reset hides every node and leaves the list ready for a fresh sort
// on the next batch; allocated arena slots are kept for reuse.
func (l *list) reset() {
	for idx := l.head; idx != 0; {
		n := l.at(idx)
		n.hide()
		idx = n.next
	}
	l.hidesSince = 0
}
