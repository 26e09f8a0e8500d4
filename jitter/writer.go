package jitter

import (
	"github.com/pion/rtp"

	"github.com/llxxmm1/rtpjitter/arena"
)

// PutPacket validates and buffers one RTP packet.  It never rejects a
// packet outright: oversize payloads are clipped (with a logged
// warning) inside the node store, and resync/discontinuity conditions
// trigger an internal Reset instead of an error.  The only error this
// can return is ErrShortPacket, for input too short to hold an RTP
// header.
func (b *Buffer) PutPacket(pkt []byte) error {
	var hdr rtp.Header
	n, err := hdr.Unmarshal(pkt)
	if err != nil {
		return ErrShortPacket
	}
	_ = n

	b.mu.Lock()
	defer b.mu.Unlock()

	got := hdr.SequenceNumber

	if !b.writeInit {
		b.writeInit = true
		b.nextSeq = got
	}

	if b.kind == Audio || b.flags&QueueOnly != 0 {
		b.nextSeq = got + 1
	} else {
		b.putVideoGap(got)
	}

	b.addNode(got, hdr.Timestamp, hdr.Marker, pkt)

	if b.flags&QueueOnly != 0 {
		for b.completeFrames > b.maxFrameLen {
			if !b.dropOldestFrame() {
				break
			}
		}
	}

	return nil
}

// putVideoGap implements the video default-mode gap tracking: NACK
// recovery bookkeeping, resync-on-huge-gap, and missing-seq index
// population.
func (b *Buffer) putVideoGap(got uint16) {
	want := b.nextSeq

	if _, ok := b.missing[got]; ok {
		delete(b.missing, got)
		if seqCompare(got, b.targetSeq) < 0 {
			// The NACKed packet arrived too late to help; raise
			// depth so future losses have more room to recover in.
			b.growFrameLen(1)
		}
		// Otherwise this is a successful NACK recovery; nothing
		// further to record.
	}

	if seqCompare(got, want) > 0 {
		gap := seqDiff(got, want)

		threshold := b.maxFrameLen
		if threshold < 17 {
			threshold = 17
		}
		if int(gap) > threshold && gap > 17 {
			b.resetLocked()
			b.requestKeyframe()
			return
		}

		if b.frameLen < int(gap) {
			b.growFrameLen(1)
		}
		for s := want; s != got; s++ {
			if _, ok := b.missing[s]; !ok {
				b.missing[s] = 0
			}
		}
		b.pruneMissing()
	}

	if seqCompare(got, want) >= 0 || uint16(want-got) > 1000 {
		b.nextSeq = got + 1
	}
}

// addNode allocates a node (or reuses a hidden one), stores the
// packet, updates both indexes, accumulates statistics, and advances
// the writer's watermarks.
func (b *Buffer) addNode(seq uint16, ts uint32, marker bool, pkt []byte) {
	if b.kind == Video && b.highestWroteValid {
		var seqDist uint16
		if seqNewer(seq, b.highestWroteSeq) {
			seqDist = seqDiff(seq, b.highestWroteSeq)
		} else {
			seqDist = seqDiff(b.highestWroteSeq, seq)
		}
		tsDist := tsAbsDiff(ts, b.highestWroteTS)
		if int(seqDist) >= b.maxFrameLen || tsDist > tsDiscontinuity {
			b.resetLocked()
			b.requestKeyframe()
		}
	}

	idx, n := b.list.alloc(b)
	if old, ok := b.seqIndex[seq]; ok && old != idx {
		b.removeNode(old)
	}
	n.store(seq, ts, marker, pkt)
	b.seqIndex[seq] = idx
	if b.tsIndex != nil {
		b.tsIndex[ts] = idx
	}
	b.visibleNodes++

	b.rate.Accumulate(uint32(len(pkt)))
	if b.samplesPerSecond != 0 {
		b.jit.hz = b.samplesPerSecond
		b.jit.Accumulate(ts)
	}

	wrapIn := b.highestWroteValid &&
		b.highestWroteSeq > 0xFFFF-100 && seq < 100

	if !b.highestWroteValid {
		b.highestWroteValid = true
		b.highestWroteSeq = seq
		b.highestWroteTS = ts
		b.completeFrames = 1
		return
	}

	if seqNewer(seq, b.highestWroteSeq) || wrapIn {
		b.highestWroteSeq = seq
	}

	if b.kind == Audio {
		b.completeFrames++
		b.highestWroteTS = ts
		return
	}

	if tsCompare(ts, b.highestWroteTS) > 0 || wrapIn {
		b.highestWroteTS = ts
		b.completeFrames++
	}
}

// removeNode hides a node already present in the indexes, e.g. when a
// duplicate/overwritten seq is rewritten with fresh bytes.
func (b *Buffer) removeNode(idx arena.Index) {
	n := b.list.at(idx)
	delete(b.seqIndex, n.seq)
	if b.tsIndex != nil {
		delete(b.tsIndex, n.ts)
	}
	if n.visible {
		b.visibleNodes--
	}
	b.list.hide(idx)
	b.list.maybeSort()
}

// dropOldestFrame removes the lowest-seq visible frame, for
// queue-only mode's bounded-FIFO policy.  It returns false if the
// buffer is empty.
func (b *Buffer) dropOldestFrame() bool {
	var found bool
	var oldest uint16
	for seq := range b.seqIndex {
		if !found || seqCompare(seq, oldest) < 0 {
			oldest = seq
			found = true
		}
	}
	if !found {
		return false
	}
	idx := b.seqIndex[oldest]
	ts := b.list.at(idx).ts
	b.dropFrame(ts)
	return true
}
