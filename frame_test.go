// License: GPLv3 or later

package afscore

import "testing"

func TestCspIs420Is444(t *testing.T) {
	cases := []struct {
		csp        Csp
		is420      bool
		is444      bool
		bytesPerSample int
	}{
		{Csp420_8, true, false, 1},
		{Csp420_10, true, false, 2},
		{Csp420_16, true, false, 2},
		{Csp444_8, false, true, 1},
		{Csp444_10, false, true, 2},
		{Csp444_16, false, true, 2},
		{CspUnknown, false, false, 0},
	}
	for _, c := range cases {
		if got := c.csp.Is420(); got != c.is420 {
			t.Errorf("%v.Is420() = %v, want %v", c.csp, got, c.is420)
		}
		if got := c.csp.Is444(); got != c.is444 {
			t.Errorf("%v.Is444() = %v, want %v", c.csp, got, c.is444)
		}
		if got := c.csp.BytesPerSample(); got != c.bytesPerSample {
			t.Errorf("%v.BytesPerSample() = %d, want %d", c.csp, got, c.bytesPerSample)
		}
	}
}

func TestFrameInfoProgressiveInterlaced(t *testing.T) {
	f := FrameInfo{Flags: FlagInterlaced}
	if f.Progressive() {
		t.Error("expected Progressive() false for interlaced frame")
	}
	if !f.Interlaced() {
		t.Error("expected Interlaced() true")
	}

	f2 := FrameInfo{}
	if !f2.Progressive() {
		t.Error("expected Progressive() true when no flags set")
	}
	if f2.Interlaced() {
		t.Error("expected Interlaced() false when no flags set")
	}
}

func TestDeinterleaveOffsets(t *testing.T) {
	off := deinterleaveOffsets(8)
	if off.UEven != 8 || off.UOdd != 10 || off.VEven != 12 || off.VOdd != 14 {
		t.Errorf("deinterleaveOffsets(8) = %+v, want {8 10 12 14}", off)
	}
}
