package jitter

import "testing"

// S1 -- Audio in-order.
func TestAudioInOrder(t *testing.T) {
	b := New(Audio, 1, 10)
	for i := uint16(0); i < 10; i++ {
		err := b.PutPacket(makePacket(100+i, 1000+160*uint32(i), false))
		if err != nil {
			t.Fatalf("PutPacket: %v", err)
		}
	}

	for i := uint16(0); i < 10; i++ {
		pkt, status := b.GetPacket()
		if status != Success {
			t.Fatalf("get %d: status = %v, want Success", i, status)
		}
		got := seqOf(pkt)
		if got != 100+i {
			t.Errorf("get %d: seq = %d, want %d", i, got, 100+i)
		}
	}

	if _, status := b.GetPacket(); status != Break {
		t.Errorf("eleventh get: status = %v, want Break", status)
	}
}

// S2 -- Video gap + NACK.
func TestVideoGapAndNack(t *testing.T) {
	clk := newFakeClock(1_000_000)
	b := New(Video, 2, 30, WithClock(clk.now))

	if err := b.PutPacket(makePacket(500, 9000, false)); err != nil {
		t.Fatalf("put 500: %v", err)
	}
	if err := b.PutPacket(makePacket(503, 9000+2*90, false)); err != nil {
		t.Fatalf("put 503: %v", err)
	}

	word := b.PopNack()
	pid, blp := htons(uint16(word)), htons(uint16(word>>16))
	if pid != 501 {
		t.Fatalf("first PopNack: pid = %d, want 501", pid)
	}
	if blp&0x1 == 0 {
		t.Errorf("first PopNack: BLP bit 0 not set, blp = %b", blp)
	}

	clk.advance(50_000)
	if word := b.PopNack(); word != 0 {
		t.Errorf("PopNack within 50ms: word = %#x, want 0", word)
	}

	clk.advance(150_000)
	if err := b.PutPacket(makePacket(501, 9000+90, false)); err != nil {
		t.Fatalf("put 501: %v", err)
	}
	word = b.PopNack()
	if word != uint32(htons(502)) {
		t.Errorf("third PopNack: word = %#x, want primary=502 only", word)
	}
}

// S3 -- Video huge jump resets the buffer.
func TestVideoHugeJumpResets(t *testing.T) {
	sess := &fakeSession{}
	b := New(Video, 2, 10, WithSession(sess))

	if err := b.PutPacket(makePacket(1000, 0, false)); err != nil {
		t.Fatalf("put 1000: %v", err)
	}
	if err := b.PutPacket(makePacket(2000, 900000, false)); err != nil {
		t.Fatalf("put 2000: %v", err)
	}

	if b.completeFrames != 1 {
		t.Errorf("completeFrames = %d, want 1", b.completeFrames)
	}
	if b.highestWroteSeq != 2000 {
		t.Errorf("highestWroteSeq = %d, want 2000", b.highestWroteSeq)
	}
	if len(b.missing) != 0 {
		t.Errorf("missing index has %d entries, want 0", len(b.missing))
	}
	if sess.keyframes == 0 {
		t.Errorf("expected a keyframe request after the reset")
	}
}

// S4 -- Depth adaptation never moves frameLen below min.
func TestDepthStaysAtMin(t *testing.T) {
	b := New(Video, 2, 10)
	b.frameLen = 2

	seq, ts := uint16(0), uint32(0)
	put := func() {
		if err := b.PutPacket(makePacket(seq, ts, false)); err != nil {
			t.Fatalf("put %d: %v", seq, err)
		}
		seq++
		ts += 3000
	}

	// Prime two frames so every get below always finds completeFrames
	// >= frameLen at call time.
	put()
	put()

	for i := 0; i < 250; i++ {
		put()
		if _, status := b.GetPacket(); status != Success {
			t.Fatalf("get %d: status = %v, want Success", i, status)
		}
	}

	if b.frameLen != 2 {
		t.Errorf("frameLen = %d, want 2 (already at min)", b.frameLen)
	}
}

// S5 -- Three misses in rapid succession bump frameLen by exactly one.
func TestDepthBumpsOncePerPeriod(t *testing.T) {
	b := New(Video, 2, 10)
	b.frameLen = 5

	seqs := []uint16{100, 101, 103, 104, 106, 107, 109, 110}
	for i, seq := range seqs {
		ts := 1000 + uint32(i)*3000
		if err := b.PutPacket(makePacket(seq, ts, false)); err != nil {
			t.Fatalf("put %d: %v", seq, err)
		}
	}

	// Each get consumes one frame; top the buffer back up after every
	// delivery so completeFrames stays at 8, above frameLen (5, then 6).
	next := uint16(111)
	delivered := 0
	for delivered < 8 {
		_, status := b.GetPacket()
		if status == Success {
			delivered++
			ts := 1000 + uint32(len(seqs)+delivered-1)*3000
			if err := b.PutPacket(makePacket(next, ts, false)); err != nil {
				t.Fatalf("put %d: %v", next, err)
			}
			next++
			continue
		}
		if status == MoreData {
			t.Fatalf("unexpected MoreData after %d delivered", delivered)
		}
		t.Fatalf("unexpected status %v after %d delivered", status, delivered)
	}

	if b.frameLen != 6 {
		t.Errorf("frameLen = %d, want 6 after exactly one bump", b.frameLen)
	}
}

// S6 -- Thinning brings an overfull buffer back near max_frame_len.
func TestThinning(t *testing.T) {
	b := New(Video, 2, 4)

	for i := uint16(0); i < 20; i++ {
		pkt := makePacket(i, 1000+uint32(i)*3000, false)
		if err := b.PutPacket(pkt); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	if _, status := b.GetPacket(); status != Success {
		t.Fatalf("first get: status = %v, want Success", status)
	}

	if b.completeFrames > b.maxFrameLen+24 {
		t.Errorf("completeFrames = %d, want <= maxFrameLen+24 (%d)",
			b.completeFrames, b.maxFrameLen+24)
	}
	if b.completeFrames >= 19 {
		t.Errorf("completeFrames = %d, expected thinning to have dropped some frames", b.completeFrames)
	}
}

// Property 1: minFrameLen <= frameLen <= maxFrameLen always holds.
func TestFrameLenBounds(t *testing.T) {
	b := New(Video, 3, 8)
	b.growFrameLen(100)
	if b.frameLen != 8 {
		t.Errorf("growFrameLen past max: frameLen = %d, want 8", b.frameLen)
	}
	b.shrinkFrameLen(100)
	if b.frameLen != 3 {
		t.Errorf("shrinkFrameLen past min: frameLen = %d, want 3", b.frameLen)
	}
}

// Property 5: round-trip via GetPacketBySeq.
func TestGetPacketBySeqRoundTrip(t *testing.T) {
	b := New(Video, 1, 10)
	pkt := makePacket(42, 1000, false)
	if err := b.PutPacket(pkt); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, status := b.GetPacketBySeq(42)
	if status != Success {
		t.Fatalf("status = %v, want Success", status)
	}
	if string(out) != string(pkt) {
		t.Errorf("payload mismatch: got %x, want %x", out, pkt)
	}
	out2, status := b.GetPacketBySeq(42)
	if status != Success {
		t.Errorf("second lookup: status = %v, want Success (no eviction)", status)
	}
	if string(out2) != string(pkt) {
		t.Errorf("second lookup payload mismatch: got %x, want %x", out2, pkt)
	}
}

// Property 6: Reset is idempotent.
func TestResetIdempotent(t *testing.T) {
	b := New(Video, 2, 10)
	b.PutPacket(makePacket(1, 1000, false))
	b.PutPacket(makePacket(2, 2000, false))

	b.Reset()
	completeFrames1, highestWroteValid1, targetSeq1 :=
		b.completeFrames, b.highestWroteValid, b.targetSeq

	b.Reset()
	completeFrames2, highestWroteValid2, targetSeq2 :=
		b.completeFrames, b.highestWroteValid, b.targetSeq

	if completeFrames1 != completeFrames2 ||
		highestWroteValid1 != highestWroteValid2 ||
		targetSeq1 != targetSeq2 {
		t.Errorf("Reset is not idempotent: (%d,%v,%d) vs (%d,%v,%d)",
			completeFrames1, highestWroteValid1, targetSeq1,
			completeFrames2, highestWroteValid2, targetSeq2)
	}
}

// Property 9: wraparound is handled when highestWroteSeq is near 65535.
func TestWraparound(t *testing.T) {
	b := New(Video, 1, 60)
	if err := b.PutPacket(makePacket(65500, 1000, false)); err != nil {
		t.Fatalf("put 65500: %v", err)
	}
	if err := b.PutPacket(makePacket(10, 4000, false)); err != nil {
		t.Fatalf("put 10: %v", err)
	}
	if b.highestWroteSeq != 10 {
		t.Errorf("highestWroteSeq = %d, want 10 (wrapped forward)", b.highestWroteSeq)
	}
}

func seqOf(pkt []byte) uint16 {
	return uint16(pkt[2])<<8 | uint16(pkt[3])
}

type fakeClock struct {
	t uint64
}

func newFakeClock(start uint64) *fakeClock { return &fakeClock{t: start} }
func (c *fakeClock) now() uint64           { return c.t }
func (c *fakeClock) advance(d uint64)      { c.t += d }
