package jitter

// htons converts a host-order uint16 to network byte order (and back
// again, being its own inverse): the low byte and high byte swap.
func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// PopNack returns the next generic NACK word worth sending, or 0 if
// nothing is currently due: the low 16 bits are htons(least), the
// high 16 bits are htons(blp), matching the FCI layout a caller
// memcpys straight onto the wire. A missing seq becomes due the first
// time it's seen, and again every renackTimeUsec afterward as long as
// it's still missing; this is the RENACK_TIME discipline that keeps a
// lost packet from being NACKed on every single read while the sender
// is still catching up.
func (b *Buffer) PopNack() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.missing) == 0 {
		return 0
	}

	now := b.clock()
	b.evictStaleMissing()
	b.pruneMissing()

	var pid uint16
	found := false
	for seq, sentAt := range b.missing {
		if sentAt != 0 && now-sentAt < renackTimeUsec {
			continue
		}
		if !found || seqCompare(seq, pid) < 0 {
			pid, found = seq, true
		}
	}
	if !found {
		return 0
	}

	var blp uint16
	for i := uint16(1); i <= 16; i++ {
		if _, ok := b.missing[pid+i]; ok {
			blp |= 1 << (i - 1)
		}
	}

	b.missing[pid] = now
	for i := uint16(1); i <= 16; i++ {
		if blp&(1<<(i-1)) != 0 {
			b.missing[pid+i] = now
		}
	}

	return uint32(htons(pid)) | uint32(htons(blp))<<16
}

// evictStaleMissing drops missing-seq entries that have fallen behind
// targetSeq - frameLen: the reader has already moved past them, so
// NACKing them further would only chase packets that can no longer be
// used even if they arrived.
func (b *Buffer) evictStaleMissing() {
	if b.kind != Video {
		return
	}
	horizon := b.targetSeq - uint16(b.frameLen)
	for seq := range b.missing {
		if seqCompare(seq, horizon) < 0 {
			delete(b.missing, seq)
		}
	}
}

// pruneMissing caps the missing-seq index at maxMissingSeq entries,
// dropping the lowest (oldest, least likely to still be recoverable)
// seqs first once it grows past that bound.
func (b *Buffer) pruneMissing() {
	for len(b.missing) > maxMissingSeq {
		var oldest uint16
		found := false
		for seq := range b.missing {
			if !found || seqCompare(seq, oldest) < 0 {
				oldest, found = seq, true
			}
		}
		if !found {
			return
		}
		delete(b.missing, oldest)
	}
}
