// frame.go - pitched device-memory frame model
//
// License: GPLv3 or later

package afscore

// Csp identifies the chroma subsampling x bit-depth variant of a planar
// frame. Only the planar layouts SourceCache accepts are enumerated here;
// anything else is rejected with KindUnsupportedCsp.
type Csp int

const (
	CspUnknown Csp = iota
	Csp420_8
	Csp420_10
	Csp420_16
	Csp444_8
	Csp444_10
	Csp444_16
)

// Is420 reports whether the variant stores chroma at half resolution.
func (c Csp) Is420() bool {
	switch c {
	case Csp420_8, Csp420_10, Csp420_16:
		return true
	}
	return false
}

// Is444 reports whether the variant stores chroma at full resolution.
func (c Csp) Is444() bool {
	switch c {
	case Csp444_8, Csp444_10, Csp444_16:
		return true
	}
	return false
}

// BytesPerSample returns the per-component storage width for the variant.
func (c Csp) BytesPerSample() int {
	switch c {
	case Csp420_8, Csp444_8:
		return 1
	case Csp420_10, Csp420_16, Csp444_10, Csp444_16:
		return 2
	default:
		return 0
	}
}

// PicStruct describes field ordering for a frame.
type PicStruct int

const (
	PicStructFrame PicStruct = iota
	PicStructTopFieldFirst
	PicStructBottomFieldFirst
)

// Flags is a bitset describing per-frame pulldown/interlace properties. The
// bits compose freely and are never modeled as a sum type (a frame can be
// interlaced and carry RFF_TFF at once).
type Flags uint8

const (
	FlagInterlaced Flags = 1 << iota
	FlagRFF
	FlagRFFTFF
	FlagRFFBFF
	FlagRFFCopy
)

// DevPtr is an opaque device memory address. Neither backend in this package
// dereferences it: RegisterResource and MapInputResource pass it through as
// a plain handle.
type DevPtr uintptr

// FrameInfo is a pitched, planar image living on device memory.
type FrameInfo struct {
	Csp        Csp
	Width      int
	Height     int
	Pitch      int // bytes between row starts
	Ptr        DevPtr
	PicStruct  PicStruct
	Flags      Flags
	Timestamp  int64 // input timebase
	Duration   int64
}

// Interlaced reports whether the frame carries the interlaced flag.
func (f FrameInfo) Interlaced() bool { return f.Flags&FlagInterlaced != 0 }

// Progressive is the logical negation of Interlaced, named for readability
// at call sites that mirror the spec's "if the source frame is progressive"
// phrasing.
func (f FrameInfo) Progressive() bool { return !f.Interlaced() }

// fieldRowOffsets describes, in units of source rows, where each
// de-interleaved chroma field begins within a SourceFrame's destination
// plane for a 4:2:0 variant of height H. Row H is luma's full height.
//
//	U even: [H,      5H/4)
//	U odd:  [5H/4,   6H/4)
//	V even: [6H/4,   7H/4)
//	V odd:  [7H/4,   2H)
type fieldRowOffsets struct {
	UEven, UOdd, VEven, VOdd int
}

func deinterleaveOffsets(h int) fieldRowOffsets {
	return fieldRowOffsets{
		UEven: h,
		UOdd:  h + h/4,
		VEven: h + h/2,
		VOdd:  h + 3*h/4,
	}
}

// SourceFrame is a FrameInfo whose 4:2:0 chroma planes (if any) have been
// de-interleaved by SourceCache into even/odd field rows. Once admitted, the
// pixel payload is never mutated; only Flags/Timestamp/Duration are
// re-stamped when a ring slot is reused for a new frame_index.
type SourceFrame struct {
	FrameInfo
	FrameIndex int64
	data       []byte // host-backed storage owned by the cache slot
}

// Data exposes the slot's backing bytes. Backends that operate purely on
// host memory (the software CodecBackend, used throughout the test suite)
// read frames through this; a device-memory backend instead treats Ptr as
// an opaque handle into its own allocator and ignores Data.
func (s *SourceFrame) Data() []byte { return s.data }
