// motioncounters.go - device->host reductions over scan and stripe maps
//
// License: GPLv3 or later

package afscore

// countMotion reduces a ScanMap's per-pixel motion bits into (ff, lf): the
// count of motion-flagged pixels in the "first field" and "last field" rows
// respectively, where a row belongs to ff iff (row_index & 1) == tbOrder.
// The reduction respects clip and excludes the final bottom row when
// (H - top - bottom) is odd, matching spec.md §4.4's parity rule. On real
// hardware this is two 32-bit-lane device reductions (low16/high16); here
// it is the host-side equivalent over the same byte map, since this core
// targets a software/Vulkan-headless backend rather than a vendor reduction
// kernel.
func countMotion(bits []byte, w, h int, clip Clip, tbOrder int) (ff, lf int64) {
	rows := h - clip.Top - clip.Bottom
	bottom := clip.Bottom
	if rows%2 != 0 {
		bottom++ // drop the final row when the clipped height is odd
	}
	for y := clip.Top; y < h-bottom; y++ {
		rowBase := y * w
		var rowCount int64
		for x := clip.Left; x < w-clip.Right; x++ {
			if bits[rowBase+x]&scanBitMotion != 0 {
				rowCount++
			}
		}
		if (y & 1) == tbOrder {
			ff += rowCount
		} else {
			lf += rowCount
		}
	}
	return ff, lf
}

// countStripe reduces a StripeMap's merged bits into (count0, count1): the
// number of pixels whose merged byte carries the even-field stripe marker
// versus the odd-field marker, respecting clip. This is what
// CadenceClassifier sub-step B compares against threshold.
func countStripe(bits []byte, w, h int, clip Clip) (count0, count1 int64) {
	for y := clip.Top; y < h-clip.Bottom; y++ {
		rowBase := y * w
		for x := clip.Left; x < w-clip.Right; x++ {
			b := bits[rowBase+x]
			if b&scanBitStripeEven != 0 {
				count0++
			}
			if b&scanBitStripeOdd != 0 {
				count1++
			}
		}
	}
	return count0, count1
}
