package jitter

import "encoding/binary"

// makePacket builds a minimal well-formed RTP packet for test use: a
// 12-byte header followed by a small fixed payload.
func makePacket(seq uint16, ts uint32, marker bool) []byte {
	pkt := make([]byte, 12+8)
	pkt[0] = 0x80
	if marker {
		pkt[1] = 0x80 | 96
	} else {
		pkt[1] = 96
	}
	binary.BigEndian.PutUint16(pkt[2:4], seq)
	binary.BigEndian.PutUint32(pkt[4:8], ts)
	binary.BigEndian.PutUint32(pkt[8:12], 0xcafef00d)
	return pkt
}

type fakeSession struct {
	keyframes int
	kbps      int
	kbpsSet   bool
}

func (s *fakeSession) RequestKeyframe() { s.keyframes++ }
func (s *fakeSession) LowBitrate() (int, bool) {
	return s.kbps, s.kbpsSet
}
