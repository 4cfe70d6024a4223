// streamstatus.go - per-frame jitter/pulldown accounting and emission timing
//
// License: GPLv3 or later

package afscore

import "math"

// StreamDropPTS is the sentinel pos[] value marking a dropped frame.
const StreamDropPTS = int64(math.MinInt64)

const streamStatusRingSize = 16

// StreamStatus tracks the running 24fps phase/position state and the
// emitted-PTS ring that get_duration reads back from (spec.md §4.6).
type StreamStatus struct {
	initialized bool

	prevStatus    Status
	phase24       int64
	position24    int64
	additionalJitter int64
	prevJitter    int64
	prevRffSmooth int64
	setFrame      int64

	pos [streamStatusRingSize]int64
}

// NewStreamStatus constructs a StreamStatus with no frames set yet.
func NewStreamStatus() *StreamStatus {
	return &StreamStatus{setFrame: -1}
}

func ringIdx(i int64) int64 {
	m := i % streamStatusRingSize
	if m < 0 {
		m += streamStatusRingSize
	}
	return m
}

// Set runs the eight-step per-frame state transition of spec.md §4.6. An
// iframe more than one past the previously set frame is rejected with
// KindInvalidSequence; a repeated or earlier iframe is not rejected.
func (s *StreamStatus) Set(iframe int64, status Status, drop24Override bool, origPTS int64) error {
	const op = "StreamStatus.Set"

	// 1. Initialization (first call only).
	if !s.initialized {
		s.prevStatus = status
		if drop24Override || (!status.has(StatusShift0) && status.has(StatusShift1) && status.has(StatusShift2)) {
			s.phase24 = 0
		} else {
			s.phase24 = 4
		}
		if status.has(StatusForce24) {
			s.position24 = 1
		} else {
			s.position24 = 0
		}
		s.initialized = true
	}

	// 2. Protocol check.
	if iframe > s.setFrame+1 {
		return newErr(op, KindInvalidSequence)
	}

	progressive := status.has(StatusProgressive)
	effectiveDrop24Override := drop24Override

	// 3. Quarter-jitter computation.
	var rffSmooth int64
	switch {
	case s.prevStatus.has(StatusRFF) && s.prevRffSmooth == 0:
		rffSmooth = -1
	case s.prevStatus.has(StatusProgressive) && status.has(StatusRFF) && s.prevRffSmooth == 0:
		rffSmooth = 1
	default:
		rffSmooth = 0
	}

	var qj int64
	if progressive {
		qj = rffSmooth
		s.additionalJitter = 0
		effectiveDrop24Override = false
	} else {
		var a int64
		if status.has(StatusShift0) {
			a = -2
		} else if s.prevStatus.has(StatusShift0) {
			if status.has(StatusSmoothing) {
				a = -1
			} else {
				a = -2
			}
		} else {
			a = 0
		}
		var b int64
		if status.has(StatusSmoothing) || s.additionalJitter != -1 {
			b = s.additionalJitter
		} else {
			b = -2
		}
		qj = a + b + rffSmooth
		s.position24 += rffSmooth
	}

	// 4. Pull-down drop (interlaced only).
	var pullDrop bool
	if !progressive {
		pullDrop = status.has(StatusFrameDrop) &&
			!(s.prevStatus.has(StatusShift0) || status.has(StatusShift0)) &&
			status.has(StatusShift1)
		if pullDrop {
			s.additionalJitter = -1
		} else {
			s.additionalJitter = 0
		}
	}

	// 5. 24fps cadence.
	drop24 := effectiveDrop24Override || (!status.has(StatusShift0) && status.has(StatusShift1) && status.has(StatusShift2))
	if drop24 {
		s.phase24 = ringMod5(s.position24 + 100)
	}
	if s.position24 >= s.phase24 &&
		(ringMod5(s.position24+100) == s.phase24 || ringMod5(s.position24+99) == s.phase24) {
		s.position24 -= 5
		drop24 = true
	}

	// 6. FORCE24 application.
	if status.has(StatusForce24) {
		pullDrop = drop24
		if progressive {
			qj += s.position24
		} else {
			qj = s.position24
			s.position24++
		}
	} else if !progressive {
		s.phase24 -= s.position24 + 1
		s.position24 = 0
	}

	// 7. Jitter drop.
	dropThre := int64(-3)
	if status.has(StatusFrameDrop) {
		dropThre = 0
	}
	if !progressive && s.prevStatus.has(StatusRFF) {
		dropThre = -3
	}
	drop := (qj-s.prevJitter < dropThre) || pullDrop

	// 8. Emission.
	idx := ringIdx(iframe)
	if drop {
		s.prevJitter -= 4
		s.pos[idx] = StreamDropPTS
	} else {
		s.prevJitter = qj
		s.pos[idx] = origPTS + qj
	}
	s.prevRffSmooth = rffSmooth
	s.prevStatus = status
	s.setFrame = iframe
	return nil
}

func ringMod5(v int64) int64 {
	m := v % 5
	if m < 0 {
		m += 5
	}
	return m
}

// GetDuration returns the output duration for frame i: the PTS delta to the
// next non-dropped frame in [i+1, i+3], or StreamDropPTS if i itself was
// dropped. Requires Set to have been called through at least i+2, else
// KindNotReady.
func (s *StreamStatus) GetDuration(i int64) (int64, error) {
	const op = "StreamStatus.GetDuration"
	if s.setFrame < i+2 {
		return 0, newErr(op, KindNotReady)
	}
	if s.pos[ringIdx(i)] == StreamDropPTS {
		return StreamDropPTS, nil
	}
	for j := i + 1; j <= i+3 && j <= s.setFrame; j++ {
		next := s.pos[ringIdx(j)]
		if next == StreamDropPTS {
			continue
		}
		return next - s.pos[ringIdx(i)], nil
	}
	return 0, newErr(op, KindNotReady)
}
