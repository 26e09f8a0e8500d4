package jitter

import (
	"encoding/binary"

	"github.com/llxxmm1/rtpjitter/arena"
)

// GetPacket advances the reader state machine and returns the next
// packet in order, or a status explaining why none is available yet.
func (b *Buffer) GetPacket() ([]byte, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.completeFrames == 0 {
		return nil, Break
	}
	if b.completeFrames < b.frameLen {
		return nil, MoreData
	}

	b.periodCount++
	if b.periodCount > 0 {
		b.periodMissPct = b.periodMissCount * 100 / b.periodCount
	}
	highMiss := b.periodMissPct > 60

	if b.periodCount >= periodLen {
		if b.consecGoodCount >= consecGoodTarget {
			b.shrinkFrameLen(1)
		}
		b.periodCount = 0
		b.periodMissCount = 0
		b.consecGoodCount = 0
		b.consecMissCount = 0
		b.bumpedThisPeriod = false

		if b.kind == Video {
			b.governBitrate()
		}
	}

	if highMiss {
		b.resetLocked()
		return nil, Restart
	}

	var idx arena.Index
	var ok bool
	if b.timestampMode() {
		idx, ok = b.selectTSMode()
	} else {
		idx, ok = b.selectSeqMode()
	}

	if !ok {
		if b.kind == Video {
			b.resetLocked()
			b.requestKeyframe()
			return nil, Restart
		}
		if b.consecMissCount > b.frameLen {
			b.resetLocked()
			b.growFrameLen(1)
			return nil, Restart
		}
		out := b.plcStamp()
		return out, NotFound
	}

	b.recordHit()

	n := b.list.at(idx)
	seq := n.seq
	ts := n.ts

	wrapIn := b.highestReadValid &&
		b.highestReadSeq > 0xFFFF-100 && seq < 100

	if !b.highestReadValid {
		b.highestReadValid = true
		b.highestReadSeq = seq
		b.highestReadTS = ts
		b.completeFrames--
	} else {
		if seqNewer(seq, b.highestReadSeq) || wrapIn {
			b.highestReadSeq = seq
		}
		if tsCompare(ts, b.highestReadTS) > 0 || wrapIn {
			b.highestReadTS = ts
			b.completeFrames--
		}
	}

	out := make([]byte, n.length)
	copy(out, n.payload())
	if b.timestampMode() {
		if len(out) >= 4 {
			binary.BigEndian.PutUint16(out[2:4], b.pseudoSeq)
		}
	}
	b.lastLen = len(out)

	b.lastTargetSeq = b.targetSeq
	b.lastTargetTS = b.targetTS
	b.targetSeq = seq + 1
	if b.timestampMode() {
		b.lastPseudoSeq = b.pseudoSeq
		b.targetTS = ts + b.samplesPerFrame
		b.pseudoSeq++
	}

	delete(b.seqIndex, seq)
	if b.tsIndex != nil {
		delete(b.tsIndex, ts)
	}
	b.visibleNodes--
	b.list.hide(idx)
	b.list.maybeSort()

	b.thinFrames()

	return out, Success
}

func (b *Buffer) recordHit() {
	b.consecGoodCount++
	b.consecMissCount = 0
}

func (b *Buffer) recordMiss() {
	b.periodMissCount++
	b.consecMissCount++
	b.consecGoodCount = 0
	if b.kind == Video && b.periodMissCount > 1 && !b.bumpedThisPeriod {
		b.growFrameLen(1)
		b.bumpedThisPeriod = true
	}
}

// selectSeqMode implements the default sequence-mode node selection:
// direct lookup at targetSeq, with a bounded forward search on miss
// that may drop a whole frame found to be unusable and retry.
func (b *Buffer) selectSeqMode() (arena.Index, bool) {
	if b.targetSeq == 0 {
		var idx arena.Index
		var found bool
		if i, ok := b.seqIndex[0]; ok {
			idx, found = i, true
		} else if i, ok := b.lowestVisibleSeq(); ok {
			idx, found = i, true
		}
		if found {
			b.targetSeq = b.list.at(idx).seq
		}
		return idx, found
	}

	if i, ok := b.seqIndex[b.targetSeq]; ok {
		return i, true
	}

	b.recordMiss()

	if b.kind == Audio {
		b.lastTargetSeq = b.targetSeq
		b.targetSeq++
		return 0, false
	}

	// Video: search forward at most missSearchWindow slots.  A node
	// whose marker bit is set, or whose ts matches the last delivered
	// ts, belongs to a frame whose head was already lost and can't be
	// used; drop that whole frame and restart the search.  This is a
	// known soft spot: in some interleavings it can discard data that
	// was actually usable (see the design notes' open question on
	// this exact behaviour).
	for attempt := 0; attempt <= missSearchWindow; attempt++ {
		dropped := false
		for i := 1; i <= missSearchWindow; i++ {
			cand := b.targetSeq + uint16(i)
			ci, ok := b.seqIndex[cand]
			if !ok {
				continue
			}
			n := b.list.at(ci)
			if n.marker || n.ts == b.highestReadTS {
				b.dropFrame(n.ts)
				dropped = true
				break
			}
			return ci, true
		}
		if !dropped {
			return 0, false
		}
	}
	return 0, false
}

// selectTSMode implements timestamp-mode node selection: a direct
// lookup at targetTS, advancing by samplesPerFrame and bumping the
// synthetic pseudoSeq on miss.  There is no forward search in this
// mode.
func (b *Buffer) selectTSMode() (arena.Index, bool) {
	if b.targetTS == 0 {
		if i, ok := b.lowestVisibleTS(); ok {
			b.targetTS = b.list.at(i).ts
			return i, true
		}
		return 0, false
	}

	if i, ok := b.tsIndex[b.targetTS]; ok {
		return i, true
	}

	b.recordMiss()
	b.lastTargetTS = b.targetTS
	b.targetTS += b.samplesPerFrame
	b.pseudoSeq++
	return 0, false
}

func (b *Buffer) lowestVisibleSeq() (arena.Index, bool) {
	var best arena.Index
	var bestSeq uint16
	found := false
	for seq, idx := range b.seqIndex {
		if !found || seqCompare(seq, bestSeq) < 0 {
			best, bestSeq, found = idx, seq, true
		}
	}
	return best, found
}

func (b *Buffer) lowestVisibleTS() (arena.Index, bool) {
	var best arena.Index
	var bestTS uint32
	found := false
	for ts, idx := range b.tsIndex {
		if !found || tsCompare(ts, bestTS) < 0 {
			best, bestTS, found = idx, ts, true
		}
	}
	return best, found
}

// plcStamp builds a zero-payload RTP packet stamped with the seq/ts
// the caller was waiting for, so it can synthesize a concealment
// frame (PLC) for that slot.
func (b *Buffer) plcStamp() []byte {
	out := make([]byte, 12)
	out[0] = 0x80
	binary.BigEndian.PutUint16(out[2:4], b.lastTargetSeq)
	binary.BigEndian.PutUint32(out[4:8], b.lastTargetTS)
	return out
}

// governBitrate implements the low-bitrate governance the reader path
// runs once per period when a session with a configured low-bitrate
// target is attached.  It flips the unmanageable flag and asks for a
// keyframe whenever the flag changes; it does not itself change any
// bitrate, since Session exposes no bitrate control.
func (b *Buffer) governBitrate() {
	if !b.lowBitrateSet {
		return
	}
	if b.unmanageable && b.frameLen == b.minFrameLen {
		b.unmanageable = false
		b.requestKeyframe()
	} else if !b.unmanageable && b.frameLen > 2*b.minFrameLen {
		b.unmanageable = true
		b.requestKeyframe()
	}
}
