// Package nackwire adapts the jitter buffer's PopNack word into an
// RFC 4585 generic NACK RTCP packet, ready to hand to
// (*webrtc.PeerConnection).WriteRTCP or any other pion/webrtc RTCP
// sink.
package nackwire

import "github.com/pion/rtcp"

// htons is its own inverse: swap the low and high byte.
func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// Encode decodes a PopNack word (low 16 bits htons(PID), high 16 bits
// htons(BLP)) into a single-pair TransportLayerNack addressed to
// senderSSRC/mediaSSRC.  The caller fills in the SSRCs it already
// knows from the session; Encode only knows about the wire word.
func Encode(senderSSRC, mediaSSRC uint32, word uint32) *rtcp.TransportLayerNack {
	pid := htons(uint16(word))
	blp := htons(uint16(word >> 16))
	return &rtcp.TransportLayerNack{
		SenderSSRC: senderSSRC,
		MediaSSRC:  mediaSSRC,
		Nacks: []rtcp.NackPair{
			{PacketID: pid, LostPackets: rtcp.PacketBitmap(blp)},
		},
	}
}
