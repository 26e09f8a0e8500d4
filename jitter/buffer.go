package jitter

import (
	"log"
	"sync"
	"time"

	"github.com/llxxmm1/rtpjitter/arena"
	"github.com/llxxmm1/rtpjitter/estimator"
	"github.com/llxxmm1/rtpjitter/rtptime"
)

// Wire constants from the design: timing and bound values the
// adaptive controller and NACK generator are built around.
const (
	renackTimeUsec   = 100_000 // RENACK_TIME
	periodLen        = 250     // PERIOD_LEN
	maxFramePadding  = 2       // MAX_FRAME_PADDING
	maxMissingSeq    = 20      // MAX_MISSING_SEQ
	tsDiscontinuity  = 4_500_000
	thinStride       = 8
	thinMaxDrops     = 25
	missSearchWindow = 10
	consecGoodTarget = 245
)

// Buffer is the jitter buffer instance: the reorder engine described
// across §3-§6 of the design.  All exported methods are safe to call
// concurrently from arbitrary goroutines; the Buffer spawns no
// goroutines of its own.
type Buffer struct {
	mu sync.Mutex // JB lock: serializes every public mutator

	kind  Kind
	flags Flag

	pool     *arena.Pool[node]
	list     *list
	ownsPool bool

	seqIndex map[uint16]arena.Index
	tsIndex  map[uint32]arena.Index // nil unless timestamp mode
	missing  map[uint16]uint64      // video only

	minFrameLen, maxFrameLen, frameLen int
	completeFrames                     int
	visibleNodes                       int

	targetSeq, lastTargetSeq uint16
	targetTS, lastTargetTS   uint32

	highestWroteValid bool
	highestWroteSeq   uint16
	highestWroteTS    uint32
	highestReadValid  bool
	highestReadSeq    uint16
	highestReadTS     uint32

	nextSeq uint16
	writeInit bool

	pseudoSeq, lastPseudoSeq uint16

	periodCount      int
	periodMissCount  int
	consecGoodCount  int
	consecMissCount  int
	periodMissPct    int
	bumpedThisPeriod bool

	samplesPerFrame, samplesPerSecond uint32

	lastLen int

	session        Session
	lowBitrateKbps int
	lowBitrateSet  bool
	unmanageable   bool

	debugLevel int
	logger     *log.Logger
	clock      func() uint64 // monotonic microseconds

	rate *estimator.Estimator
	jit  *Estimator
}

// Option configures a Buffer at construction time.
type Option func(*Buffer)

// WithPool adopts a caller-provided arena instead of creating one.
// The Buffer does not own an adopted pool: Close leaves it alone.
func WithPool(pool *arena.Pool[node]) Option {
	return func(b *Buffer) {
		b.pool = pool
		b.ownsPool = false
	}
}

// WithSession installs the session collaborator at construction time,
// equivalent to calling SetSession immediately after New.
func WithSession(s Session) Option {
	return func(b *Buffer) { b.setSession(s) }
}

// WithDebugLevel sets the initial debug level.
func WithDebugLevel(level int) Option {
	return func(b *Buffer) { b.debugLevel = level }
}

// WithLogger overrides the *log.Logger used for truncation and
// resync/reset diagnostics.  Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(b *Buffer) { b.logger = l }
}

// WithClock overrides the monotonic microsecond clock used for NACK
// aging.  Defaults to rtptime.Microseconds.
func WithClock(now func() uint64) Option {
	return func(b *Buffer) { b.clock = now }
}

// New creates a jitter buffer of the given kind with frame-count
// bounds [min, max].  If no pool is supplied via WithPool, the Buffer
// creates and owns its own arena.
func New(kind Kind, min, max int, opts ...Option) *Buffer {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}

	b := &Buffer{
		kind:        kind,
		minFrameLen: min,
		maxFrameLen: max,
		frameLen:    min,
		seqIndex:    make(map[uint16]arena.Index),
		logger:      log.Default(),
		clock:       rtptime.Microseconds,
		rate:        estimator.New(time.Second),
		jit:         NewEstimator(90000),
	}
	if kind == Video {
		b.missing = make(map[uint16]uint64)
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.pool == nil {
		b.pool = arena.New[node](max)
		b.ownsPool = true
	}
	b.list = newList(b.pool)

	return b
}

func (b *Buffer) logf(format string, args ...any) {
	if b.logger == nil {
		return
	}
	b.logger.Printf(format, args...)
}

// SetTimestampMode enables the timestamp-keyed index and switches the
// reader path to ts-mode.  samplesPerFrame/samplesPerSecond must both
// be non-zero; a zero pair (the default) leaves the buffer in
// sequence mode.
func (b *Buffer) SetTimestampMode(samplesPerFrame, samplesPerSecond uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samplesPerFrame = samplesPerFrame
	b.samplesPerSecond = samplesPerSecond
	if samplesPerFrame != 0 && samplesPerSecond != 0 {
		if b.tsIndex == nil {
			b.tsIndex = make(map[uint32]arena.Index)
		}
	} else {
		b.tsIndex = nil
	}
}

func (b *Buffer) timestampMode() bool {
	return b.samplesPerFrame != 0 && b.samplesPerSecond != 0
}

// SetSession installs the session collaborator, which enables
// keyframe-request callbacks and reads the low-bitrate governance
// target once.  Valid targets lie in (128, 10240) kbps; anything
// outside that range is treated as "not configured".
func (b *Buffer) SetSession(s Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setSession(s)
}

func (b *Buffer) setSession(s Session) {
	b.session = s
	b.lowBitrateSet = false
	b.lowBitrateKbps = 0
	if s == nil {
		return
	}
	if kbps, ok := s.LowBitrate(); ok && kbps > 128 && kbps < 10240 {
		b.lowBitrateKbps = kbps
		b.lowBitrateSet = true
	}
}

func (b *Buffer) requestKeyframe() {
	if b.session != nil {
		b.session.RequestKeyframe()
	}
}

// SetFlag sets the given bits in the buffer's flag word.
func (b *Buffer) SetFlag(f Flag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags |= f
}

// ClearFlag clears the given bits in the buffer's flag word.
func (b *Buffer) ClearFlag(f Flag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags &^= f
}

// Flags returns the current flag word.
func (b *Buffer) Flags() Flag {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags
}

// SetDebugLevel sets the verbosity of internal diagnostics.
func (b *Buffer) SetDebugLevel(level int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debugLevel = level
}

// SetFrames rebalances the adaptive bounds, clamping the current
// target depth into the new range.
func (b *Buffer) SetFrames(min, max int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setFrames(min, max)
}

func (b *Buffer) setFrames(min, max int) error {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	b.minFrameLen = min
	b.maxFrameLen = max
	if b.frameLen < min {
		b.frameLen = min
	}
	if b.frameLen > max {
		b.frameLen = max
	}
	return nil
}

// GetFrames returns the current bounds and target depth.
func (b *Buffer) GetFrames() (min, cur, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.minFrameLen, b.frameLen, b.maxFrameLen
}

// growFrameLen raises frameLen by delta, clamped to maxFrameLen.
func (b *Buffer) growFrameLen(delta int) {
	b.frameLen += delta
	if b.frameLen > b.maxFrameLen {
		b.frameLen = b.maxFrameLen
	}
}

// shrinkFrameLen lowers frameLen by delta, clamped to minFrameLen.
func (b *Buffer) shrinkFrameLen(delta int) {
	b.frameLen -= delta
	if b.frameLen < b.minFrameLen {
		b.frameLen = b.minFrameLen
	}
}

// Reset clears counters, watermarks and the missing-seq index, and
// hides every buffered node; allocated arena slots are retained for
// reuse.  Video buffers also request a keyframe.  Reset is idempotent:
// calling it twice in a row leaves the same zero state both times.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	if b.kind == Video {
		b.requestKeyframe()
	}
}

func (b *Buffer) resetLocked() {
	b.list.reset()
	for k := range b.seqIndex {
		delete(b.seqIndex, k)
	}
	for k := range b.tsIndex {
		delete(b.tsIndex, k)
	}
	for k := range b.missing {
		delete(b.missing, k)
	}
	b.visibleNodes = 0
	b.completeFrames = 0

	b.targetSeq, b.lastTargetSeq = 0, 0
	b.targetTS, b.lastTargetTS = 0, 0
	b.highestWroteValid = false
	b.highestWroteSeq, b.highestWroteTS = 0, 0
	b.highestReadValid = false
	b.highestReadSeq, b.highestReadTS = 0, 0
	b.nextSeq = 0
	b.writeInit = false
	b.pseudoSeq, b.lastPseudoSeq = 0, 0

	b.periodCount = 0
	b.periodMissCount = 0
	b.consecGoodCount = 0
	b.consecMissCount = 0
	b.periodMissPct = 0
	b.bumpedThisPeriod = false

	b.lastLen = 0
}

// Close releases the buffer's resources.  If the Buffer created its
// own arena, Close tears it down; an arena adopted via WithPool is
// left alone, matching the teacher's "free_pool" convention.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seqIndex = nil
	b.tsIndex = nil
	b.missing = nil
	if b.ownsPool {
		b.pool.Reset()
	}
}

// Stats returns a snapshot of the buffer's running statistics.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	rate, packetRate := b.rate.Estimate()
	return Stats{
		Rate:         rate,
		PacketRate:   packetRate,
		MissPct:      b.periodMissPct,
		VisibleNodes: b.visibleNodes,
		FrameLen:     b.frameLen,
		Jitter:       b.jit.Jitter(),
	}
}

// FrameCount returns the number of complete frames currently buffered.
func (b *Buffer) FrameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completeFrames
}

// Poll reports whether the buffer has reached its target depth.
func (b *Buffer) Poll() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completeFrames >= b.frameLen
}

// LastReadLen returns the length in bytes of the last packet
// delivered by GetPacket.
func (b *Buffer) LastReadLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastLen
}
