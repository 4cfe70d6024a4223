// License: GPLv3 or later

package afscore

import "testing"

func setScanSlot(c *ScanCache, i int64, w, h int, ff, lf int64) {
	s := c.Get(i)
	s.Status = ScanValid
	s.Frame = i
	s.Width, s.Height = w, h
	s.Params = ScanParams{Clip: Clip{}}
	s.FfMotion, s.LfMotion = ff, lf
}

func setStripeSlot(c *StripeCache, i int64, count0, count1 int64) {
	s := c.slot(i)
	s.Status = StripeMerged
	s.Frame = i
	s.Count0, s.Count1 = count0, count1
}

// fillWindow populates every ScanMap/StripeMap AnalyzeFrame(iframe) can
// possibly touch: scan frames iframe-1..iframe+5, stripe frames
// iframe..iframe+3 (see AnalyzeFrame's doc comment).
func fillWindow(scan *ScanCache, stripe *StripeCache, iframe int64, w, h int, ff, lf, count0, count1 int64) {
	for i := iframe - 1; i <= iframe+5; i++ {
		setScanSlot(scan, i, w, h, ff, lf)
	}
	for i := iframe; i <= iframe+3; i++ {
		setStripeSlot(stripe, i, count0, count1)
	}
}

func TestCadenceClassifierAllQuietYieldsNoShift(t *testing.T) {
	scan := NewScanCache()
	stripe := NewStripeCache()
	fillWindow(scan, stripe, 1, 4, 4, 0, 0, 0, 0)
	cfg := DefaultAFSConfig()
	cc := NewCadenceClassifier(scan, stripe, &cfg)

	st := cc.AnalyzeFrame(1, true)
	if !st.has(StatusProgressive) {
		t.Error("expected StatusProgressive set for a progressive source frame")
	}
	if st.has(StatusShift0) || st.has(StatusShift1) || st.has(StatusShift2) || st.has(StatusShift3) {
		t.Errorf("expected no shift bits for an all-quiet window, got %v", st)
	}
}

func TestCadenceClassifierMemoizes(t *testing.T) {
	scan := NewScanCache()
	stripe := NewStripeCache()
	fillWindow(scan, stripe, 2, 4, 4, 0, 0, 0, 0)
	cfg := DefaultAFSConfig()
	cc := NewCadenceClassifier(scan, stripe, &cfg)

	first := cc.AnalyzeFrame(2, false)
	// mutate an underlying scan slot; a memoized result must not change.
	setScanSlot(scan, 1, 4, 4, 999, 999)
	second := cc.AnalyzeFrame(2, false)
	if first != second {
		t.Errorf("expected memoized status to be stable, got %v then %v", first, second)
	}
}

func TestCadenceClassifierMasksBeforeFrameZero(t *testing.T) {
	scan := NewScanCache()
	stripe := NewStripeCache()
	fillWindow(scan, stripe, 0, 4, 4, 0, 0, 1000, 0) // drive shift bits on, to verify masking
	cfg := DefaultAFSConfig()
	cfg.CoeffShift = 1
	cc := NewCadenceClassifier(scan, stripe, &cfg)

	st := cc.AnalyzeFrame(0, false)
	if st&^StatusShift0 != 0 {
		t.Errorf("expected only StatusShift0 to survive for iframe<1, got %v", st)
	}
}

func TestCadenceClassifierApplyRFFPropagatesFlags(t *testing.T) {
	scan := NewScanCache()
	stripe := NewStripeCache()
	fillWindow(scan, stripe, 2, 4, 4, 0, 0, 0, 0)
	cfg := DefaultAFSConfig()
	cc := NewCadenceClassifier(scan, stripe, &cfg)
	cc.AnalyzeFrame(2, true)

	st := cc.ApplyRFF(2, FlagRFF|FlagRFFTFF)
	if !st.has(StatusRFF) || !st.has(StatusRFFTFF) {
		t.Errorf("expected StatusRFF and StatusRFFTFF set, got %v", st)
	}
	if st.has(StatusRFFBFF) {
		t.Error("unexpected StatusRFFBFF")
	}
}

func TestCadenceClassifierDropSmoothForce24(t *testing.T) {
	scan := NewScanCache()
	stripe := NewStripeCache()
	fillWindow(scan, stripe, 4, 4, 4, 0, 0, 1000, 0) // force StatusShift0 (and shift1) on
	cfg := DefaultAFSConfig()
	cfg.CoeffShift = 1
	cfg.Drop = true
	cfg.Smooth = true
	cfg.Force24 = true
	cc := NewCadenceClassifier(scan, stripe, &cfg)

	st := cc.AnalyzeFrame(4, false)
	if !st.has(StatusForce24) {
		t.Error("expected StatusForce24 set whenever cfg.Force24 is true")
	}
	if st.has(StatusShift0) && !st.has(StatusFrameDrop) {
		t.Error("expected StatusFrameDrop whenever cfg.Drop and StatusShift0 are both set")
	}
}

// TestCadenceClassifierSlidingWindowReadsDistinctFrames proves that each of
// the four positions reads its own shifted four-ScanMap window
// (iframe+i-1..iframe+i+2) rather than a single fixed window cyclically
// rotated. Every scan slot in range gets a distinct FfMotion/LfMotion pair
// so that substituting the wrong frame into any position changes the
// resulting shift bit.
func TestCadenceClassifierSlidingWindowReadsDistinctFrames(t *testing.T) {
	const iframe = int64(10)
	scan := NewScanCache()
	stripe := NewStripeCache()

	// Distinct, non-uniform per-frame values: frame n gets
	// FfMotion=10*n, LfMotion=10*n+1, so no two frames in range collide.
	for i := iframe - 1; i <= iframe+5; i++ {
		setScanSlot(scan, i, 4, 4, 10*i, 10*i+1)
	}
	for i := iframe; i <= iframe+3; i++ {
		setStripeSlot(stripe, i, 0, 0)
	}
	cfg := DefaultAFSConfig()
	cfg.CoeffShift = 128
	// MethodSwitch=256 (the max) makes threshold = (16*256)/4096 = 1 for
	// this 4x4 test frame, which exceeds the all-zero stripe counts below
	// and forces resultStat's bit 2, so the final shift bit reflects
	// assumeShift[i] (the motion-based hypothesis under test) rather than
	// the stripe-count fallback.
	cfg.MethodSwitch = 256
	cc := NewCadenceClassifier(scan, stripe, &cfg)

	st := cc.AnalyzeFrame(iframe, false)

	// Hand-trace position i=3 (the position requiring the widest sliding
	// offset, iframe+2..iframe+5): sp1=scan(12), sp2=scan(13), sp3=scan(14),
	// sp4=scan(15) with Ff=10n, Lf=10n+1.
	sp1ff, sp1lf := int64(10*12), int64(10*12+1)
	sp2ff, sp2lf := int64(10*13), int64(10*13+1)
	sp3ff, sp3lf := int64(10*14), int64(10*14+1)
	sp4ff, sp4lf := int64(10*15), int64(10*15+1)
	coeffShift := int64(cfg.CoeffShift)
	lhs := maxI64(
		absI64(sp1lf+sp2lf-sp2ff),
		absI64(sp3ff+sp4ff-sp3lf),
	) * coeffShift
	rhs := max3I64(
		absI64(sp1ff+sp2ff-sp1lf),
		absI64(sp2ff+sp3ff-sp2lf),
		absI64(sp3lf+sp4lf-sp4ff),
	) * 256
	ruleA := lhs > rhs && maxI64(sp2lf, sp3ff)*coeffShift > sp2ff*256
	ruleB := lhs > rhs && maxI64(sp2ff, sp3lf)*coeffShift > sp2lf*256
	wantShift3 := ruleA || ruleB

	// Count0/Count1 are both zero for every frame in range, so
	// threshold > 0 (total > 0) forces resultStat[i] += 2 for every
	// position, meaning the final bit always reflects assumeShift[i]
	// directly.
	gotShift3 := st.has(StatusShift3)
	if gotShift3 != wantShift3 {
		t.Errorf("StatusShift3 = %v, want %v (position 3's window must read frames %d..%d, not a cyclic rotation of %d..%d)",
			gotShift3, wantShift3, iframe+2, iframe+5, iframe-1, iframe+2)
	}
}
