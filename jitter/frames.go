package jitter

// dropFrame hides every visible node sharing timestamp ts, the unit
// the design's drop and thinning policies operate on.  It decrements
// completeFrames by one for the frame removed and returns the number
// of packets it hid.
func (b *Buffer) dropFrame(ts uint32) int {
	dropped := 0
	for seq, idx := range b.seqIndex {
		n := b.list.at(idx)
		if n.ts != ts {
			continue
		}
		delete(b.seqIndex, seq)
		if b.tsIndex != nil {
			delete(b.tsIndex, ts)
		}
		b.visibleNodes--
		b.list.hide(idx)
		dropped++
	}
	if dropped > 0 {
		b.completeFrames--
		b.list.maybeSort()
	}
	return dropped
}

// thinFrames runs the periodic thinning policy: once the buffer holds
// more complete frames than maxFrameLen, it walks the list in its
// (loosely sorted, so oldest/lowest-seq-first) order and drops every
// 8th distinct ts-frame it encounters, up to thinMaxDrops frames or
// until completeFrames is back within maxFrameLen.  Starting from the
// oldest frames, it removes one frame in every eight.
func (b *Buffer) thinFrames() {
	if b.completeFrames <= b.maxFrameLen {
		return
	}

	// Thinning needs the list in actual seq order to prefer dropping
	// old frames; the steady-state per-packet paths only resort every
	// resortBatch hides, so force one here rather than rely on
	// whatever batch happened to accumulate.  This only runs when the
	// buffer is already over depth, so the O(n log n) cost is fine.
	b.list.sort()
	b.list.hidesSince = 0

	drops := 0
	for drops < thinMaxDrops && b.completeFrames > b.maxFrameLen {
		frame := 0
		var lastTS uint32
		haveLast := false
		dropped := false

		for idx := b.list.head; idx != 0; idx = b.list.at(idx).next {
			n := b.list.at(idx)
			if !n.visible {
				continue
			}
			if haveLast && n.ts == lastTS {
				continue
			}
			lastTS = n.ts
			haveLast = true
			frame++
			// Each pass restarts from the head after the previous
			// drops removed one frame each ahead of this position, so
			// the next 8th frame of the original order sits at
			// (drops+1)*thinStride - drops.
			if frame == (drops+1)*thinStride-drops {
				b.dropFrame(n.ts)
				drops++
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
	}
}
