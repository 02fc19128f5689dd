package wearable

import "sync"

// ChangeReport lists the edges between the previous snapshot and a new one.
type ChangeReport struct {
	// Changed is false when the new snapshot equals the previous one.
	Changed         bool
	First           bool
	BrushingStarted bool
	BrushingStopped bool
	// Pressed holds the flags that went from false to true.
	Pressed PressureFlags
}

// Edges reports whether any edge fired.
func (r ChangeReport) Edges() bool {
	return r.BrushingStarted || r.BrushingStopped || r.Pressed.Any()
}

// ChangeDetector remembers the last snapshot of one advertisement stream.
type ChangeDetector struct {
	mu   sync.Mutex
	last *Event
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Update compares ev with the last snapshot and records it. The first
// snapshot seen reports no edges.
func (d *ChangeDetector) Update(ev Event) ChangeReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last == nil {
		d.last = &ev
		return ChangeReport{Changed: true, First: true}
	}
	prev := *d.last
	if prev == ev {
		return ChangeReport{}
	}
	d.last = &ev

	report := ChangeReport{Changed: true}
	if ev.State == StateRunning && prev.State != StateRunning {
		report.BrushingStarted = true
	}
	if prev.State == StateRunning && ev.State == StateIdle {
		report.BrushingStopped = true
	}
	report.Pressed = risingEdges(prev.Pressure, ev.Pressure)
	return report
}

// Last returns the most recent snapshot, if any.
func (d *ChangeDetector) Last() (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return Event{}, false
	}
	return *d.last, true
}

func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}

func risingEdges(prev, next PressureFlags) PressureFlags {
	return unpackFlags(next.pack() &^ prev.pack())
}
