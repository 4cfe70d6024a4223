// backend.go - external collaborator interfaces (spec.md §6)
//
// License: GPLv3 or later

package afscore

import "context"

// FrameSource is the caller-supplied producer the orchestrator reads source
// frames from.
type FrameSource interface {
	// Read returns the next frame, or (nil, nil, nil) at EOF.
	Read(ctx context.Context) (*FrameInfo, []byte, error)
}

// DisplayInfo is what a GPU decoder yields per decoded picture, consumed by
// DecodeCoupler (spec.md §4.9).
type DisplayInfo struct {
	PictureIndex   int64
	Timestamp      int64
	TopFieldFirst  bool
	Progressive    bool
}

// BitstreamSource is the GPU-decoded path's packet/display-info feed.
type BitstreamSource interface {
	NextBitstream(ctx context.Context) ([]byte, int64, error)
	VideoCodecContext() (timebase int64, err error)
}

// EncodeResult is CodecBackend.EncodePicture's outcome.
type EncodeResult int

const (
	EncodeSuccess EncodeResult = iota
	EncodeNeedMoreInput
)

// InputSurface is an opaque handle to a device-memory input allocation.
type InputSurface uintptr

// Bitstream is an opaque handle to a device-memory output allocation.
type Bitstream uintptr

// CompletionEvent is an opaque handle a backend signals on picture
// completion; backends implement Wait themselves (fence, channel, ...).
type CompletionEvent interface {
	Wait(ctx context.Context) error
}

// RegisteredResource is a device pointer registered with the backend for
// the GPU-decoded path (spec.md §4.9's register_resource/map_input_resource).
type RegisteredResource uintptr

// PicParams is the per-picture submission the orchestrator / EncodePipeline
// passes to EncodePicture.
type PicParams struct {
	Input     InputSurface
	Output    Bitstream
	Event     CompletionEvent
	PTS       int64
	PicStruct PicStruct
	EOS       bool
}

// CodecBackend mirrors the vendor SDK at concept level (spec.md §6): session
// lifecycle, buffer/event allocation, submission, and bitstream retrieval.
// Two implementations ship with this core: softwareBackend (host-memory,
// used throughout the test suite) and vulkanBackend (build-tagged, requires
// a real ICD).
type CodecBackend interface {
	OpenSession(cfg EncoderConfig) error
	CreateInputBuffer(w, h int, csp Csp) (InputSurface, error)
	CreateBitstreamBuffer(size int) (Bitstream, error)
	RegisterAsyncEvent() (CompletionEvent, error)
	RegisterResource(ptr DevPtr, w, h, pitch int) (RegisteredResource, error)
	MapInputResource(r RegisteredResource) (InputSurface, error)
	// WriteInputSurface copies data into the surface's backing storage
	// (spec.md §4.8 step 2: "copy the synthesized frame into the triple's
	// input surface"). Every CodecBackend must give EncodePipeline a real
	// way to stage pixel bytes in, host-memory or device-memory alike.
	WriteInputSurface(s InputSurface, data []byte) error
	EncodePicture(p PicParams) (EncodeResult, error)
	LockBitstream(b Bitstream) ([]byte, error)
	UnlockBitstream(b Bitstream) error
	DestroyInputBuffer(s InputSurface) error
	DestroyBitstreamBuffer(b Bitstream) error
	Close() error
}

// BitstreamSink is the append-only destination for encoded output bytes,
// one buffered writer per spec.md §6; flushed and closed at EOS.
type BitstreamSink interface {
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}
