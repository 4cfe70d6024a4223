// License: GPLv3 or later

package afscore

import (
	"context"
	"log"
	"testing"
)

// fakeFrameSource yields n identical progressive 4:2:0 frames, then EOF.
type fakeFrameSource struct {
	n    int64
	i    int64
	w, h int
}

func (f *fakeFrameSource) Read(ctx context.Context) (*FrameInfo, []byte, error) {
	if f.i >= f.n {
		return nil, nil, nil
	}
	info, data := build420Frame()
	info.Width, info.Height, info.Pitch = f.w, f.h, f.w
	info.Timestamp = f.i
	info.Duration = 4
	f.i++
	return &info, data, nil
}

func newTestOrchestrator(t *testing.T, nframes int64) (*Orchestrator, *memSink) {
	t.Helper()
	const w, h = 4, 4

	source := NewSourceCache()
	if err := source.Alloc(FrameInfo{Csp: Csp420_8, Width: w, Height: h}); err != nil {
		t.Fatalf("source.Alloc: %v", err)
	}
	scan := NewScanCache()
	stripe := NewStripeCache()
	scan.AttachStripeCache(stripe)

	cfg := DefaultAFSConfig()
	cadence := NewCadenceClassifier(scan, stripe, &cfg)
	status := NewStreamStatus()
	synth := NewFrameSynthesizer(source, 24, 90000)

	backend := newSoftwareBackend()
	if err := backend.OpenSession(EncoderConfig{RateControl: RateControlCQP}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	sink := newMemSink()
	pipe, err := NewEncodePipeline(backend, sink, w, h, Csp420_8, 0)
	if err != nil {
		t.Fatalf("NewEncodePipeline: %v", err)
	}

	src := &fakeFrameSource{n: nframes, w: w, h: h}
	orch := NewOrchestrator(src, source, scan, stripe, cadence, status, synth, pipe, &cfg, log.New(testWriter{t}, "", 0))
	return orch, sink
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestOrchestratorProgressivePassthroughCompletes(t *testing.T) {
	orch, sink := newTestOrchestrator(t, 16)
	if err := orch.Encode(context.Background()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(sink.buf) == 0 {
		t.Error("expected encoded bytes written to sink")
	}
	if orch.droppedFrames != 0 {
		t.Errorf("droppedFrames = %d, want 0 for an all-progressive source", orch.droppedFrames)
	}
}
