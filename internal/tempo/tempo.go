// Package tempo estimates beats per minute from a sequence of user taps.
package tempo

import (
	"errors"
	"math"
)

const (
	// DefaultMaxTapInterval is the gap after which a tap starts a new sequence.
	DefaultMaxTapInterval = 2000
	// MaxTaps bounds the sliding window of remembered taps.
	MaxTaps = 10
	// MinTaps is the number of taps needed before an estimate is shown.
	MinTaps = 3
)

var (
	ErrNoBPM   = errors.New("no bpm estimate to commit")
	ErrNoVideo = errors.New("no target video")
)

// Target receives a committed BPM. The annotation store implements it.
type Target interface {
	SetBPM(videoID, bpm int) error
}

// Estimator holds tap tempo state for a single session.
type Estimator struct {
	taps           []float64
	bpm            float64
	hasBPM         bool
	maxTapInterval float64
}

// New creates an Estimator with the default staleness interval.
func New() *Estimator {
	return &Estimator{maxTapInterval: DefaultMaxTapInterval}
}

// RegisterTap records a tap at nowMs, a monotonic millisecond timestamp.
func (e *Estimator) RegisterTap(nowMs float64) {
	if n := len(e.taps); n > 0 && nowMs-e.taps[n-1] > e.maxTapInterval {
		e.Reset()
		e.taps = append(e.taps, nowMs)
		return
	}

	e.taps = append(e.taps, nowMs)
	if len(e.taps) > MaxTaps {
		e.taps = e.taps[len(e.taps)-MaxTaps:]
	}

	bpm, ok := ComputeBPM(e.taps)
	e.bpm = bpm
	e.hasBPM = ok
}

// ComputeBPM averages the intervals between consecutive taps and converts the
// average to beats per minute, rounded to one decimal.
func ComputeBPM(taps []float64) (float64, bool) {
	if len(taps) < MinTaps {
		return 0, false
	}

	var sum float64
	for i := 1; i < len(taps); i++ {
		sum += taps[i] - taps[i-1]
	}
	avg := sum / float64(len(taps)-1)
	if avg <= 0 {
		return 0, false
	}

	return math.Round(60000/avg*10) / 10, true
}

// BPM returns the current estimate.
func (e *Estimator) BPM() (float64, bool) {
	return e.bpm, e.hasBPM
}

// Taps returns a copy of the remembered tap timestamps.
func (e *Estimator) Taps() []float64 {
	return append([]float64(nil), e.taps...)
}

// Reset clears the taps and the estimate.
func (e *Estimator) Reset() {
	e.taps = nil
	e.bpm = 0
	e.hasBPM = false
}

// Commit stores the rounded estimate on the video and resets the estimator.
// videoID 0 means no video is selected.
func (e *Estimator) Commit(target Target, videoID int) (int, error) {
	if !e.hasBPM {
		return 0, ErrNoBPM
	}
	if videoID == 0 || target == nil {
		return 0, ErrNoVideo
	}

	bpm := int(math.Round(e.bpm))
	if err := target.SetBPM(videoID, bpm); err != nil {
		return 0, err
	}

	e.Reset()
	return bpm, nil
}
