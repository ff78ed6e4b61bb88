package main

import "time"

// fpsMeter reports the frame rate once every n frames.
type fpsMeter struct {
	every int
	count int
	start time.Time
	now   func() time.Time
}

func newFPSMeter(every int, now func() time.Time) *fpsMeter {
	return &fpsMeter{every: every, now: now, start: now()}
}

// Tick counts a frame and returns the rate of the last n frames when n
// frames have been counted since the previous report.
func (m *fpsMeter) Tick() (float64, bool) {
	if m.every <= 0 {
		return 0, false
	}
	m.count++
	if m.count < m.every {
		return 0, false
	}
	t := m.now()
	elapsed := t.Sub(m.start)
	n := m.count
	m.count = 0
	m.start = t
	if elapsed <= 0 {
		return 0, false
	}
	return float64(n) / elapsed.Seconds(), true
}
