// Command jbplay replays synthetic RTP traffic through a jitter
// buffer and prints summary statistics to stdout; with -v it also
// logs each NACK and delivered packet to stderr.  It exists to exercise jitter.Buffer end to end
// without a real media stack attached.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/llxxmm1/rtpjitter/jitter"
	"github.com/llxxmm1/rtpjitter/jitter/nackwire"
)

var (
	kindFlag    string
	minFrames   int
	maxFrames   int
	count       int
	lossPct     int
	reorderPct  int
	seed        int64
	verbose     bool
)

func init() {
	flag.StringVar(&kindFlag, "kind", "video", "buffer kind: audio or video")
	flag.IntVar(&minFrames, "min", 2, "minimum target depth, in frames")
	flag.IntVar(&maxFrames, "max", 50, "maximum target depth, in frames")
	flag.IntVar(&count, "count", 1000, "number of packets to generate")
	flag.IntVar(&lossPct, "loss", 5, "percentage of packets dropped in flight")
	flag.IntVar(&reorderPct, "reorder", 2, "percentage of packets delayed by one slot")
	flag.Int64Var(&seed, "seed", 1, "PRNG seed")
	flag.BoolVar(&verbose, "v", false, "log every delivered packet")
}

type session struct{}

func (session) RequestKeyframe()                {}
func (session) LowBitrate() (int, bool)          { return 0, false }

func main() {
	flag.Parse()

	var kind jitter.Kind
	switch kindFlag {
	case "audio":
		kind = jitter.Audio
	case "video":
		kind = jitter.Video
	default:
		fmt.Fprintf(os.Stderr, "jbplay: unknown kind %q\n", kindFlag)
		os.Exit(1)
	}

	b := jitter.New(kind, minFrames, maxFrames, jitter.WithSession(session{}))
	defer b.Close()

	rng := rand.New(rand.NewSource(seed))
	packets := synthesize(count, rng)

	// Simulate network loss/reorder while feeding the writer side.
	pending := packets[:0:0]
	for _, pkt := range packets {
		if rng.Intn(100) < lossPct {
			continue
		}
		pending = append(pending, pkt)
	}
	for i := 0; i+1 < len(pending); i++ {
		if rng.Intn(100) < reorderPct {
			pending[i], pending[i+1] = pending[i+1], pending[i]
		}
	}

	delivered, nacks := 0, 0
	for _, pkt := range pending {
		if err := b.PutPacket(pkt); err != nil {
			log.Printf("jbplay: PutPacket: %v", err)
			continue
		}
		if word := b.PopNack(); word != 0 {
			nacks++
			rtcpPkt := nackwire.Encode(0x1, 0x2, word)
			if verbose {
				log.Printf("nack: %+v", rtcpPkt.Nacks[0])
			}
		}
		for {
			out, status := b.GetPacket()
			switch status {
			case jitter.Success:
				delivered++
				if verbose {
					log.Printf("deliver: %d bytes", len(out))
				}
			case jitter.NotFound:
				if verbose {
					log.Printf("plc stamp: %d bytes", len(out))
				}
				continue
			default:
			}
			break
		}
	}

	stats := b.Stats()
	fmt.Printf("generated=%d sent=%d delivered=%d nacks=%d\n",
		len(packets), len(pending), delivered, nacks)
	fmt.Printf("rate=%d B/s packets=%d/s miss=%d%% visible=%d framelen=%d\n",
		stats.Rate, stats.PacketRate, stats.MissPct, stats.VisibleNodes, stats.FrameLen)
}

// synthesize builds a run of sequential, well-formed RTP packets with
// a monotonically increasing timestamp every 3 packets (one
// simulated video frame per 3 packets, matching a common low-res
// keyframe cadence), each with a small fixed payload.
func synthesize(n int, rng *rand.Rand) [][]byte {
	const samplesPerFrame = 3000
	out := make([][]byte, 0, n)
	seq := uint16(rng.Intn(1 << 16))
	ts := uint32(rng.Intn(1 << 30))
	for i := 0; i < n; i++ {
		marker := i%3 == 2
		pkt := make([]byte, 12+20)
		pkt[0] = 0x80
		if marker {
			pkt[1] = 0x80
		}
		binary.BigEndian.PutUint16(pkt[2:4], seq)
		binary.BigEndian.PutUint32(pkt[4:8], ts)
		binary.BigEndian.PutUint32(pkt[8:12], 0x12345678)
		out = append(out, pkt)
		seq++
		if marker {
			ts += samplesPerFrame
		}
	}
	return out
}
