package jitter

// This file collects the wraparound-aware comparisons the writer and
// reader paths need.  The comparator shape mirrors packetcache's
// compare/seqnoInvalid helpers (same trick: look at the top bit of the
// difference to decide which side of the cycle a value falls on),
// generalised to both the 16-bit sequence space and the 32-bit
// timestamp space.

// seqCompare orders two 16-bit sequence numbers modulo 2^16, assuming
// neither is more than half the cycle away from the other.  It
// returns -1 if a precedes b, 0 if equal, 1 if a follows b.
func seqCompare(a, b uint16) int {
	if a == b {
		return 0
	}
	if (b-a)&0x8000 != 0 {
		return 1
	}
	return -1
}

// seqNewer reports whether a is strictly newer than b.
func seqNewer(a, b uint16) bool {
	return seqCompare(a, b) > 0
}

// seqDiff returns newer-older with wraparound, i.e. the number of
// sequence numbers separating them when newer does in fact follow
// older.  The result is meaningless if that assumption doesn't hold.
func seqDiff(newer, older uint16) uint16 {
	return newer - older
}

// tsCompare orders two 32-bit RTP timestamps modulo 2^32 the same way
// seqCompare does for sequence numbers.
func tsCompare(a, b uint32) int {
	if a == b {
		return 0
	}
	if (b-a)&0x80000000 != 0 {
		return 1
	}
	return -1
}

// tsAbsDiff returns the wrap-aware absolute difference between two
// timestamps.  The source this buffer is modeled on computes this
// quantity as a comparison against itself, which always yields a
// small value and silently defeats the discontinuity check it feeds;
// this implements the evident intent instead: treat the raw 32-bit
// difference as two's-complement and take its magnitude, the same
// technique Estimator.accumulate uses for its own wrap-aware delta.
func tsAbsDiff(a, b uint32) uint32 {
	d := a - b
	if d&0x80000000 != 0 {
		d = uint32(-int32(d))
	}
	return d
}
