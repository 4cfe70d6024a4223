// afsencstat - summarizes an AFS CSV log (afslog.go's output)
//
// License: GPLv3 or later

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

func main() {
	wide := flag.Bool("wide", false, "print every column regardless of terminal width")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: afsencstat [options] afslog.csv\n\nSummarizes dropped-frame and jitter statistics from an AFS CSV log.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	stats, err := summarize(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	printReport(stats, width, *wide)
}

type logStats struct {
	rows         int
	dropped      int64
	maxAbsJitter int64
	shiftCounts  [4]int
	progressive  int
	interlaced   int
}

func summarize(f *os.File) (*logStats, error) {
	s := &logStats{}
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue // header
		}
		// The "sts" column itself is Status.String()'s own
		// comma-joined "p|i,r|-,0|-,1|-,2|-,3|-" - each sub-token
		// lands as its own CSV field, so fields[1..6] are sts and
		// fields[7:] are pos onward.
		fields := strings.Split(line, ",")
		if len(fields) < 15 {
			continue
		}
		s.rows++

		flagStr := strings.TrimSpace(fields[1])
		if flagStr == "p" {
			s.progressive++
		} else {
			s.interlaced++
		}
		for i := 0; i < 4; i++ {
			v := strings.TrimSpace(fields[3+i])
			if v != "-" && v != "" {
				s.shiftCounts[i]++
			}
		}

		if qj, err := strconv.ParseInt(strings.TrimSpace(fields[9]), 10, 64); err == nil {
			abs := qj
			if abs < 0 {
				abs = -abs
			}
			if abs > s.maxAbsJitter {
				s.maxAbsJitter = abs
			}
		}

		droppedTotal := strings.TrimSpace(fields[len(fields)-1])
		if v, err := strconv.ParseInt(droppedTotal, 10, 64); err == nil {
			s.dropped = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func printReport(s *logStats, width int, wide bool) {
	fmt.Printf("frames:       %d\n", s.rows)
	fmt.Printf("dropped:      %d\n", s.dropped)
	fmt.Printf("progressive:  %d\n", s.progressive)
	fmt.Printf("interlaced:   %d\n", s.interlaced)
	fmt.Printf("max |jitter|: %d\n", s.maxAbsJitter)
	if wide || width >= 100 {
		fmt.Printf("shift bits:   shift0=%d shift1=%d shift2=%d shift3=%d\n",
			s.shiftCounts[0], s.shiftCounts[1], s.shiftCounts[2], s.shiftCounts[3])
	}
}
