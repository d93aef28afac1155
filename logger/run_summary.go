package logger

import (
	"sync"
	"time"
)

// PhaseEntry records one lifecycle phase of a fixture run.
type PhaseEntry struct {
	Name     string
	Status   string // "ok", "failed", "skipped"
	Duration time.Duration
}

// GeneratorEntry records one generator taking part in a fixture run.
type GeneratorEntry struct {
	Type   string
	Path   string
	Status string // "generated", "cleaned", "failed"
}

// RunSummary collects what happened during a single fixture run so it can be
// logged as one entry when the run ends.
type RunSummary struct {
	mu         sync.Mutex
	name       string
	startTime  time.Time
	phases     []PhaseEntry
	generators []GeneratorEntry
}

// NewRunSummary starts a summary for the named run.
func NewRunSummary(name string) *RunSummary {
	return &RunSummary{name: name, startTime: time.Now()}
}

// Name returns the run name.
func (s *RunSummary) Name() string { return s.name }

// StartTime returns when the run started.
func (s *RunSummary) StartTime() time.Time { return s.startTime }

// RecordPhase appends a phase entry.
func (s *RunSummary) RecordPhase(name, status string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, PhaseEntry{Name: name, Status: status, Duration: d})
}

// RecordGenerator appends a generator entry.
func (s *RunSummary) RecordGenerator(typeName, path, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generators = append(s.generators, GeneratorEntry{Type: typeName, Path: path, Status: status})
}

// Phases returns a copy of the recorded phases.
func (s *RunSummary) Phases() []PhaseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PhaseEntry(nil), s.phases...)
}

// Generators returns a copy of the recorded generators.
func (s *RunSummary) Generators() []GeneratorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GeneratorEntry(nil), s.generators...)
}

// Failed reports whether any phase failed.
func (s *RunSummary) Failed() bool {
	for _, p := range s.Phases() {
		if p.Status == "failed" {
			return true
		}
	}
	return false
}

// Log writes the summary through l as a single entry. Failed runs log at warn.
func (s *RunSummary) Log(l *Logger) {
	phases := make(map[string]interface{})
	for _, p := range s.Phases() {
		phases[p.Name] = p.Status
	}
	fields := Fields(
		FieldRun, s.name,
		"phases", phases,
		"generators", len(s.Generators()),
	)
	fields = MergeWithDuration(fields, time.Since(s.startTime))
	if s.Failed() {
		l.Warn("fixture run finished with failures", fields)
		return
	}
	l.Debug("fixture run finished", fields)
}
