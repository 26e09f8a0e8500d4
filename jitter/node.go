package jitter

import "github.com/llxxmm1/rtpjitter/arena"

// node is one buffered RTP packet slot.  Nodes live in the arena for
// the lifetime of the Buffer; they are never freed individually, only
// hidden (visible = false) and reused.  prev/next express the doubly
// linked list as arena indexes rather than raw pointers, per the
// "pointer graph in a safe language" design note: the arena gives us
// O(1) remove/promote without the aliasing hazards of real pointers.
type node struct {
	seq     uint16
	ts      uint32
	marker  bool
	length  int
	buf     [MaxPacketSize]byte
	visible bool

	// parent is a weak back-reference: the node does not own the
	// Buffer, the Buffer (via its arena) owns the node.
	parent *Buffer

	prev, next arena.Index
}

func (n *node) payload() []byte {
	return n.buf[:n.length]
}

// store copies packet bytes into the node and marks it visible,
// truncating to MaxPacketSize with a logged warning if necessary.
func (n *node) store(seq uint16, ts uint32, marker bool, pkt []byte) {
	l := len(pkt)
	if l > MaxPacketSize {
		n.parent.logf("jitter: packet of %d bytes truncated to %d", l, MaxPacketSize)
		l = MaxPacketSize
	}
	n.seq = seq
	n.ts = ts
	n.marker = marker
	n.length = copy(n.buf[:l], pkt)
	n.visible = true
}

func (n *node) hide() {
	n.visible = false
	n.length = 0
}
