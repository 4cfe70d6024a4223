// License: GPLv3 or later

package afscore

import "testing"

func TestCountMotionFieldParity(t *testing.T) {
	w, h := 2, 4
	bits := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bits[y*w+x] = scanBitMotion
		}
	}
	// tbOrder=1 (tff): odd rows (1,3) are the "first field".
	ff, lf := countMotion(bits, w, h, Clip{}, 1)
	if ff != 4 || lf != 4 {
		t.Errorf("ff/lf = %d/%d, want 4/4", ff, lf)
	}

	// tbOrder=0 (bff): even rows (0,2) are the first field.
	ff, lf = countMotion(bits, w, h, Clip{}, 0)
	if ff != 4 || lf != 4 {
		t.Errorf("ff/lf = %d/%d, want 4/4", ff, lf)
	}
}

func TestCountMotionOddHeightDropsFinalRow(t *testing.T) {
	w, h := 2, 3
	bits := make([]byte, w*h)
	for x := 0; x < w; x++ {
		bits[2*w+x] = scanBitMotion // bottom row only
	}
	ff, lf := countMotion(bits, w, h, Clip{}, 1)
	if ff != 0 || lf != 0 {
		t.Errorf("ff/lf = %d/%d, want 0/0 (final row of odd-height clip must be dropped)", ff, lf)
	}
}

func TestCountMotionRespectsClip(t *testing.T) {
	w, h := 4, 2
	bits := make([]byte, w*h)
	bits[0] = scanBitMotion // row0, x=0 - inside left clip
	bits[1] = scanBitMotion // row0, x=1 - outside clip
	clip := Clip{Left: 1}
	ff, lf := countMotion(bits, w, h, clip, 0)
	if ff+lf != 1 {
		t.Errorf("ff+lf = %d, want 1 (clip should exclude x=0)", ff+lf)
	}
}

func TestCountStripe(t *testing.T) {
	w, h := 2, 2
	bits := []byte{scanBitStripeEven, scanBitStripeOdd, scanBitStripeEven | scanBitStripeOdd, 0}
	c0, c1 := countStripe(bits, w, h, Clip{})
	if c0 != 2 || c1 != 2 {
		t.Errorf("count0/count1 = %d/%d, want 2/2", c0, c1)
	}
}
