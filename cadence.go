// cadence.go - five-frame lookahead cadence classifier
//
// License: GPLv3 or later

package afscore

// CadenceClassifier assigns each frame a Status bitset from a five-frame
// lookahead window of ScanMaps and StripeMaps (spec.md §4.5).
type CadenceClassifier struct {
	scan    *ScanCache
	stripe  *StripeCache
	cfg     *AFSConfig
	results map[int64]Status
}

// NewCadenceClassifier wires the classifier to the scan/stripe caches it
// reads lookahead data from and the config it reads thresholds/overrides
// from.
func NewCadenceClassifier(scan *ScanCache, stripe *StripeCache, cfg *AFSConfig) *CadenceClassifier {
	return &CadenceClassifier{scan: scan, stripe: stripe, cfg: cfg, results: make(map[int64]Status)}
}

// AnalyzeFrame computes (and memoizes) status[iframe]. Position i (0..3)
// evaluates its assume-shift hypothesis over its own four-ScanMap window
// iframe+i-1 .. iframe+i+2 — a window that slides per position, matching
// detect_telecine_cross(iframe+i) in NVEncFilterAfs.cpp, not a single
// fixed window shared across positions. Across the four positions this
// call therefore requires ScanMaps for frames iframe-1..iframe+5 (seven
// distinct frames — see SourceCacheCapacity) and stripe results for
// iframe..iframe+3, all already present in the attached caches.
func (c *CadenceClassifier) AnalyzeFrame(iframe int64, progressive bool) Status {
	if s, ok := c.results[iframe]; ok {
		return s
	}

	center := c.scan.Get(iframe)

	var assumeShift [4]bool
	var resultStat [4]int

	h := center.Height
	w := center.Width
	clip := center.Params.Clip
	coeffShift := int64(c.cfg.CoeffShift)
	rows := h - clip.Top - clip.Bottom
	total := int64(rows) * int64(w-clip.Left-clip.Right)
	if rows%2 != 0 {
		total -= int64(w - clip.Left - clip.Right)
	}
	threshold := total * int64(c.cfg.MethodSwitch) / 4096

	for i := 0; i < 4; i++ {
		base := iframe + int64(i)
		sp1 := c.scan.Get(base - 1)
		sp2 := c.scan.Get(base)
		sp3 := c.scan.Get(base + 1)
		sp4 := c.scan.Get(base + 2)

		lhs := maxI64(
			absI64(sp1.LfMotion+sp2.LfMotion-sp2.FfMotion),
			absI64(sp3.FfMotion+sp4.FfMotion-sp3.LfMotion),
		) * coeffShift
		rhs := max3I64(
			absI64(sp1.FfMotion+sp2.FfMotion-sp1.LfMotion),
			absI64(sp2.FfMotion+sp3.FfMotion-sp2.LfMotion),
			absI64(sp3.LfMotion+sp4.LfMotion-sp4.FfMotion),
		) * 256
		ruleA := lhs > rhs && maxI64(sp2.LfMotion, sp3.FfMotion)*coeffShift > sp2.FfMotion*256
		ruleB := lhs > rhs && maxI64(sp2.FfMotion, sp3.LfMotion)*coeffShift > sp2.LfMotion*256
		assumeShift[i] = ruleA || ruleB

		stripeMap := c.stripe.slot(iframe + int64(i))
		st := 0
		if stripeMap.Count0*coeffShift > stripeMap.Count1*256 {
			st = 1
		}
		if threshold > stripeMap.Count0 && threshold > stripeMap.Count1 {
			st += 2
		}
		resultStat[i] = st
	}

	var status Status
	for i := 0; i < 4; i++ {
		var bit bool
		if resultStat[i]&2 != 0 {
			bit = assumeShift[i]
		} else {
			bit = resultStat[i]&1 != 0
		}
		if c.cfg.ReverseShift[i] {
			bit = !bit
		}
		if bit {
			status |= shiftBit(i)
		}
	}

	if progressive {
		status |= StatusProgressive
	}

	// RFF flags propagate from the admitted source frame via ApplyRFF,
	// called by the caller once the source frame is known; ScanMap itself
	// carries no flags of its own.

	if c.cfg.Drop && status.has(StatusShift0) {
		status |= StatusFrameDrop
	}
	if c.cfg.Smooth && status.has(StatusShift0) && status.has(StatusShift1) {
		status |= StatusSmoothing
	}
	if c.cfg.Force24 {
		status |= StatusForce24
	}

	if iframe < 1 {
		status &= StatusShift0
	}

	c.results[iframe] = status
	return status
}

// ApplyRFF ORs in the pulldown flags carried by the source frame, matching
// spec.md §4.5's "propagate RFF" step, and memoizes the updated status.
func (c *CadenceClassifier) ApplyRFF(iframe int64, f Flags) Status {
	status := c.results[iframe]
	if f&FlagRFF != 0 {
		status |= StatusRFF
	}
	if f&FlagRFFCopy != 0 {
		status |= StatusRFFCopy
	}
	if f&FlagRFFTFF != 0 {
		status |= StatusRFFTFF
	}
	if f&FlagRFFBFF != 0 {
		status |= StatusRFFBFF
	}
	c.results[iframe] = status
	return status
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func max3I64(a, b, c int64) int64 {
	return maxI64(maxI64(a, b), c)
}
