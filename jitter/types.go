package jitter

import "errors"

// Kind distinguishes the two buffering policies the buffer supports.
// The source this is modeled on dispatches on a single axis this way
// rather than through virtual methods; audio and video differ enough
// in their resync, loss and NACK behaviour that the code below keeps
// them as explicit branches instead of hiding them behind an
// interface.
type Kind int

const (
	// Audio disables gap tracking and NACK generation: every write
	// simply advances nextSeq and every read advances targetSeq.
	Audio Kind = iota
	// Video tracks missing sequence numbers, emits NACKs, and runs
	// the discontinuity/resync checks described in the writer path.
	Video
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// Status is returned by the reader-path operations in lieu of the
// usual Go error, since most of the values below (MoreData, Break,
// NotFound) are routine, expected outcomes rather than failures.
type Status int

const (
	// Success indicates a packet was delivered.
	Success Status = iota
	// MoreData indicates the buffer is still filling to its target
	// depth; the caller should wait and call again later.
	MoreData
	// Break indicates the buffer is completely empty.
	Break
	// NotFound indicates a gap at the current target; the caller
	// should synthesize concealment (PLC) using the stamped seq/ts.
	NotFound
	// Restart indicates the buffer reset itself internally and the
	// caller's downstream pipeline (decoder state, etc.) should
	// restart as well.
	Restart
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case MoreData:
		return "more data"
	case Break:
		return "break"
	case NotFound:
		return "not found"
	case Restart:
		return "restart"
	default:
		return "unknown"
	}
}

// Flag holds the bit flags accepted by SetFlag/ClearFlag.
type Flag uint32

const (
	// QueueOnly disables gap tracking and NACKs and turns the buffer
	// into a bounded FIFO: complete_frames in excess of max_frame_len
	// are dropped oldest-first on write instead of being thinned on
	// read.
	QueueOnly Flag = 1 << iota
)

// ErrShortPacket is returned by PutPacket when the packet is too short
// to contain an RTP header.
var ErrShortPacket = errors.New("jitter: packet shorter than RTP header")

// MaxPacketSize bounds the packet bytes a node retains.  Packets
// longer than this are truncated with a logged warning, never
// rejected.
const MaxPacketSize = 1500

// Session models the session-wide collaborator the buffer calls back
// into: requesting a keyframe on discontinuity or reset, and exposing
// the configured low-bitrate target for the reader path's bitrate
// governance.  A real session (an RTCP/PLI sender, an SFU track) is
// out of scope for this package; Session is the narrow seam a caller
// wires its own implementation into.
type Session interface {
	// RequestKeyframe asks the far end to send a new keyframe,
	// typically by generating a PLI or FIR.
	RequestKeyframe()
	// LowBitrate returns the configured low-bitrate governance
	// target in kbps, and whether one is configured at all.  Valid
	// targets lie in (128, 10240) kbps; SetSession clamps anything
	// outside that range to "not configured".
	LowBitrate() (kbps int, ok bool)
}

// FrameHeader carries the RTP header fields PeekFrame reports without
// copying the payload.
type FrameHeader struct {
	Seq    uint16
	TS     uint32
	Marker bool
}

// Stats summarises the buffer's running statistics, combining the
// adaptive controller's own miss-rate bookkeeping with the ambient
// rate estimator fed from the writer path.
type Stats struct {
	// Rate and PacketRate are the byte and packet arrival rate over
	// the last measurement interval, in units per second.
	Rate, PacketRate uint32
	// MissPct is the miss percentage of the current adaptive-controller
	// period so far, as computed by the most recent GetPacket (0-100).
	MissPct int
	// VisibleNodes is the number of currently buffered packets.
	VisibleNodes int
	// FrameLen is the current adaptive target depth, in frames.
	FrameLen int
	// Jitter is the estimated interarrival jitter, in units of
	// 1/samplesPerSecond seconds; zero until timestamp mode is
	// configured with a non-zero samplesPerSecond.
	Jitter uint32
}
