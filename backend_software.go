// backend_software.go - host-memory CodecBackend used by tests
//
// License: GPLv3 or later

package afscore

import (
	"context"
	"fmt"
	"sync"
)

// softwareCompletionEvent is a CompletionEvent backed by a closed-on-signal
// channel, standing in for a backend fence (mirrors the teacher's
// channel-based completion pattern used throughout its coprocessor queues).
type softwareCompletionEvent struct {
	done chan struct{}
}

func newSoftwareCompletionEvent() *softwareCompletionEvent {
	return &softwareCompletionEvent{done: make(chan struct{})}
}

func (e *softwareCompletionEvent) signal() { close(e.done) }

func (e *softwareCompletionEvent) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return wrapErr("softwareCompletionEvent.Wait", KindTimeout, ctx.Err())
	}
}

type softwareSurface struct {
	w, h int
	csp  Csp
	data []byte
}

type softwareStream struct {
	bytes []byte
}

// softwareBackend is a host-memory CodecBackend: submissions are recorded,
// and LockBitstream serves bytes from a caller-supplied generator (or a
// canned payload when none is set). This is the backend the package's
// tests run against.
type softwareBackend struct {
	mu       sync.Mutex
	opened   bool
	cfg      EncoderConfig
	surfaces map[InputSurface]*softwareSurface
	streams  map[Bitstream]*softwareStream
	nextID   uintptr

	// Gen, when set, produces the bitstream payload for a submitted
	// picture; nil means synthesize a small canned payload instead.
	Gen func(p PicParams) []byte

	Submissions []PicParams
}

// newSoftwareBackend constructs an unopened backend.
func newSoftwareBackend() *softwareBackend {
	return &softwareBackend{
		surfaces: make(map[InputSurface]*softwareSurface),
		streams:  make(map[Bitstream]*softwareStream),
	}
}

func (b *softwareBackend) allocID() uintptr {
	b.nextID++
	return b.nextID
}

func (b *softwareBackend) OpenSession(cfg EncoderConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.cfg = cfg
	b.opened = true
	return nil
}

func (b *softwareBackend) CreateInputBuffer(w, h int, csp Csp) (InputSurface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return 0, newErr("softwareBackend.CreateInputBuffer", KindDeviceUnavailable)
	}
	size, err := storageSize(FrameInfo{Csp: csp, Width: w, Height: h})
	if err != nil {
		return 0, err
	}
	id := InputSurface(b.allocID())
	b.surfaces[id] = &softwareSurface{w: w, h: h, csp: csp, data: make([]byte, size)}
	return id, nil
}

func (b *softwareBackend) CreateBitstreamBuffer(size int) (Bitstream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := Bitstream(b.allocID())
	b.streams[id] = &softwareStream{}
	return id, nil
}

func (b *softwareBackend) RegisterAsyncEvent() (CompletionEvent, error) {
	return newSoftwareCompletionEvent(), nil
}

func (b *softwareBackend) RegisterResource(ptr DevPtr, w, h, pitch int) (RegisteredResource, error) {
	return RegisteredResource(ptr), nil
}

func (b *softwareBackend) MapInputResource(r RegisteredResource) (InputSurface, error) {
	return InputSurface(r), nil
}

// WriteInputSurface copies data into the surface's backing slice, clamped to
// its allocated size (mirrors a real SDK's pitched-surface copy silently
// truncating at the surface bound rather than overrunning it).
func (b *softwareBackend) WriteInputSurface(s InputSurface, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	surf, ok := b.surfaces[s]
	if !ok {
		return newErr("softwareBackend.WriteInputSurface", KindEncoderError)
	}
	copy(surf.data, data)
	return nil
}

// EncodePicture records the submission and immediately signals the event
// (the software backend has no real async device queue to wait on) and
// fills the output bitstream from Gen or a canned payload.
func (b *softwareBackend) EncodePicture(p PicParams) (EncodeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return 0, newErr("softwareBackend.EncodePicture", KindDeviceUnavailable)
	}
	b.Submissions = append(b.Submissions, p)

	var payload []byte
	if b.Gen != nil {
		payload = b.Gen(p)
	} else if !p.EOS {
		payload = []byte(fmt.Sprintf("frame pts=%d pic=%d", p.PTS, p.PicStruct))
	}
	if s, ok := b.streams[p.Output]; ok {
		s.bytes = payload
	}
	if ev, ok := p.Event.(*softwareCompletionEvent); ok {
		ev.signal()
	}
	return EncodeSuccess, nil
}

func (b *softwareBackend) LockBitstream(bs Bitstream) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[bs]
	if !ok {
		return nil, newErr("softwareBackend.LockBitstream", KindEncoderError)
	}
	return s.bytes, nil
}

func (b *softwareBackend) UnlockBitstream(bs Bitstream) error { return nil }

func (b *softwareBackend) DestroyInputBuffer(s InputSurface) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.surfaces, s)
	return nil
}

func (b *softwareBackend) DestroyBitstreamBuffer(bs Bitstream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.streams, bs)
	return nil
}

func (b *softwareBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = false
	return nil
}

// memSink is an in-memory BitstreamSink, used by tests in place of a file.
type memSink struct {
	buf    []byte
	closed bool
}

func newMemSink() *memSink { return &memSink{} }

func (s *memSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, newErr("memSink.Write", KindIoError)
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *memSink) Flush() error { return nil }

func (s *memSink) Close() error {
	s.closed = true
	return nil
}
