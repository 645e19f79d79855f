package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// dotsTotal fills an 80 column terminal.
const dotsTotal = 40

// ProgressMonitor prints a row of dots while matches complete
type ProgressMonitor struct {
	mu          sync.Mutex
	out         io.Writer
	total       int
	completed   int
	dotsPrinted int
	startTime   time.Time
}

func NewProgressMonitor(out io.Writer, total int) *ProgressMonitor {
	if total < 1 {
		total = 1
	}
	fmt.Fprintf(out, "Playing %d matches: ", total)
	return &ProgressMonitor{out: out, total: total, startTime: time.Now()}
}

// OnMatchComplete is called with the number of matches finished so far
func (m *ProgressMonitor) OnMatchComplete(done int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed = done
	target := min(done, m.total) * dotsTotal / m.total
	for ; m.dotsPrinted < target; m.dotsPrinted++ {
		fmt.Fprint(m.out, ".")
	}
}

// PrintSummary ends the progress line with the match rate
func (m *ProgressMonitor) PrintSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ; m.dotsPrinted < dotsTotal; m.dotsPrinted++ {
		fmt.Fprint(m.out, ".")
	}
	elapsed := time.Since(m.startTime).Seconds()
	fmt.Fprintf(m.out, " ✓ %d matches in %.1fs (%.0f/sec)\n", m.completed, elapsed, float64(m.completed)/elapsed)
}
