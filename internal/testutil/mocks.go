package testutil

import (
	"sync"
	"time"
)

// MockClock reports a controllable time. Its Now method satisfies the
// Clock interfaces used by the pipeline.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// RecordingDisplay keeps every text published to it.
type RecordingDisplay struct {
	mu    sync.Mutex
	texts []string
}

// NewRecordingDisplay creates an empty RecordingDisplay.
func NewRecordingDisplay() *RecordingDisplay {
	return &RecordingDisplay{}
}

// Publish records text.
func (d *RecordingDisplay) Publish(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
}

// Texts returns a copy of everything published so far.
func (d *RecordingDisplay) Texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.texts))
	copy(out, d.texts)
	return out
}

// Last returns the most recent text, or "" if nothing was published.
func (d *RecordingDisplay) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) == 0 {
		return ""
	}
	return d.texts[len(d.texts)-1]
}

// Count returns the number of published texts.
func (d *RecordingDisplay) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.texts)
}

// RecordingControls records enable/disable transitions of start controls.
type RecordingControls struct {
	mu      sync.Mutex
	enabled bool
	history []bool
}

// NewRecordingControls creates controls that start enabled.
func NewRecordingControls() *RecordingControls {
	return &RecordingControls{enabled: true}
}

// SetEnabled records the new state.
func (c *RecordingControls) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	c.history = append(c.history, enabled)
}

// Enabled returns the current state.
func (c *RecordingControls) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// History returns every state passed to SetEnabled, in order.
func (c *RecordingControls) History() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bool, len(c.history))
	copy(out, c.history)
	return out
}
