// License: GPLv3 or later

package afscore

import (
	"bytes"
	"strings"
	"testing"
)

func TestTimecodeWriterHeaderAndFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewTimecodeWriter(&buf)
	if err := w.Write(0, 1, 1); err != nil {
		t.Fatalf("Write(0): %v", err)
	}
	if err := w.Write(1000, 1, 1); err != nil {
		t.Fatalf("Write(1000): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "# timecode format v2" {
		t.Errorf("header = %q, want %q", lines[0], "# timecode format v2")
	}
	// pts=0 suppressed, so only one data line should follow the header.
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2 (header + one timecode)", lines)
	}
	if lines[1] != "1000000.000000" {
		t.Errorf("line 1 = %q, want %q", lines[1], "1000000.000000")
	}
}

func TestTimecodeWriterRescalesTimebase(t *testing.T) {
	var buf bytes.Buffer
	w := NewTimecodeWriter(&buf)
	// pts=1 at 1/2 timebase -> 500ms.
	if err := w.Write(1, 1, 2); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := "# timecode format v2\n500.000000\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
