// License: GPLv3 or later

package main

import (
	"os"
	"testing"

	afscore "github.com/fieldshift/afsencode"
)

type logRow struct {
	iframe                                                                  int64
	status                                                                  afscore.Status
	pos, origPTS, qJit, prevJitter, pos24, phase24, rffSmooth, droppedTotal int64
}

func writeTempLog(t *testing.T, rows []logRow) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "afslog-*.csv")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	w, err := afscore.NewAFSLogWriter(f)
	if err != nil {
		t.Fatalf("NewAFSLogWriter: %v", err)
	}
	for _, r := range rows {
		if err := w.Write(r.iframe, r.status, r.pos, r.origPTS, r.qJit, r.prevJitter, r.pos24, r.phase24, r.rffSmooth, r.droppedTotal); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	return f
}

func TestSummarizeAgainstRealAFSLog(t *testing.T) {
	rows := []logRow{
		{iframe: 0, status: afscore.StatusProgressive, origPTS: 1000},
		{iframe: 1, status: 0, origPTS: 1010, qJit: 5},
		{iframe: 2, status: afscore.StatusShift1, origPTS: 1020, qJit: -9, droppedTotal: 1},
	}
	f := writeTempLog(t, rows)
	defer f.Close()

	s, err := summarize(f)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.rows != 3 {
		t.Errorf("rows = %d, want 3", s.rows)
	}
	if s.progressive != 1 {
		t.Errorf("progressive = %d, want 1", s.progressive)
	}
	if s.interlaced != 2 {
		t.Errorf("interlaced = %d, want 2", s.interlaced)
	}
	if s.maxAbsJitter != 9 {
		t.Errorf("maxAbsJitter = %d, want 9", s.maxAbsJitter)
	}
	if s.dropped != 1 {
		t.Errorf("dropped = %d, want 1 (last row's running total)", s.dropped)
	}
	if s.shiftCounts[1] != 1 {
		t.Errorf("shiftCounts[1] = %d, want 1", s.shiftCounts[1])
	}
}

func TestSummarizeSkipsShortRows(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "afslog-*.csv")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("header\ntoo,few,cols\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	s, err := summarize(f)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.rows != 0 {
		t.Errorf("rows = %d, want 0", s.rows)
	}
}
