// Package jitter implements an RTP jitter buffer: a reorder and
// loss-concealment stage sitting between an RTP receiver and a codec.
//
// The package also carries a small interarrival-jitter estimator
// (RFC 3550 section 6.4.1 style) used by Buffer.Stats to report a
// smoothed jitter figure alongside the reorder statistics.
package jitter

import (
	"sync/atomic"

	"github.com/llxxmm1/rtpjitter/rtptime"
)

// Estimator tracks interarrival jitter for one RTP stream, smoothed
// the way RFC 3550 describes for receiver reports.
type Estimator struct {
	hz        uint32
	timestamp uint32
	time      uint32

	jitter uint32 // atomic
}

// NewEstimator returns a new jitter estimator that uses units of 1/hz
// seconds.
func NewEstimator(hz uint32) *Estimator {
	return &Estimator{hz: hz}
}

func (e *Estimator) accumulate(timestamp, now uint32) {
	if e.time == 0 {
		e.timestamp = timestamp
		e.time = now
	}

	d := uint32((e.time - now) - (e.timestamp - timestamp))
	if d&0x80000000 != 0 {
		d = uint32(-int32(d))
	}
	oldjitter := atomic.LoadUint32(&e.jitter)
	jitter := (oldjitter*15 + d) / 16
	atomic.StoreUint32(&e.jitter, jitter)

	e.timestamp = timestamp
	e.time = now
}

// Accumulate accumulates a new sample for the jitter estimator.
func (e *Estimator) Accumulate(timestamp uint32) {
	e.accumulate(timestamp, uint32(rtptime.Now(e.hz)))
}

// Jitter returns the estimated jitter, in units of 1/hz seconds.
// This function is safe to call concurrently.
func (e *Estimator) Jitter() uint32 {
	return atomic.LoadUint32(&e.jitter)
}

func (e *Estimator) HZ() uint32 {
	return e.hz
}
