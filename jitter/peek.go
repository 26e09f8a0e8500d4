package jitter

// PeekFrame looks up the node at (ts, seq) and returns its header
// without removing it from the buffer, or NotFound if no such node is
// currently visible.  offset shifts the lookup seq forward by that
// many positions first, so a caller can walk a frame packet by packet
// without guessing seq numbers ahead of time; ts is only used to
// disambiguate in timestamp mode and is otherwise ignored.
func (b *Buffer) PeekFrame(ts uint32, seq uint32, offset int) (FrameHeader, []byte, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	want := uint16(seq) + uint16(offset)
	idx, ok := b.seqIndex[want]
	if !ok {
		return FrameHeader{}, nil, NotFound
	}
	n := b.list.at(idx)
	if b.tsIndex != nil && n.ts != ts && ts != 0 {
		return FrameHeader{}, nil, NotFound
	}

	out := make([]byte, n.length)
	copy(out, n.payload())
	return FrameHeader{Seq: n.seq, TS: n.ts, Marker: n.marker}, out, Success
}

// GetPacketBySeq looks up and copies out a specific packet by
// sequence number, bypassing the ordered reader path entirely.  It
// exists for callers that need to pull a packet out of order, e.g.
// serving a retransmission from the jitter buffer itself instead of a
// separate retransmission cache. It does not evict: the node stays in
// the buffer for the ordinary reader path to deliver or for thinning
// to drop later.
func (b *Buffer) GetPacketBySeq(seq uint16) ([]byte, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.seqIndex[seq]
	if !ok {
		return nil, NotFound
	}
	n := b.list.at(idx)
	out := make([]byte, n.length)
	copy(out, n.payload())

	return out, Success
}
