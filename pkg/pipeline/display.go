package pipeline

import "sync"

// Display shows a line of text. Publish is fire-and-forget and is only
// called from the looper goroutine.
type Display interface {
	Publish(text string)
}

// Controls toggles the start controls.
type Controls interface {
	SetEnabled(enabled bool)
}

// Surface groups the collaborators an Orchestrator reports to.
// Nil fields are replaced by no-op implementations.
type Surface struct {
	// Counter receives "Hello World! <n>" on every producer tick
	// of runs started with StartWithOneExecutor or StartWithTwoExecutors.
	Counter Display

	// Result receives "Total time: " on start and "Total time: <ms>" on stop.
	Result Display

	// Controls is disabled while a run is active.
	Controls Controls
}

func (s Surface) withDefaults() Surface {
	if s.Counter == nil {
		s.Counter = discard{}
	}
	if s.Result == nil {
		s.Result = discard{}
	}
	if s.Controls == nil {
		s.Controls = discard{}
	}
	return s
}

type discard struct{}

func (discard) Publish(string) {}
func (discard) SetEnabled(bool) {}

// TextView is a Display that keeps the most recent text.
// It is safe for concurrent use.
type TextView struct {
	mu   sync.RWMutex
	text string
}

// Publish implements Display.
func (v *TextView) Publish(text string) {
	v.mu.Lock()
	v.text = text
	v.mu.Unlock()
}

// Text returns the last published text.
func (v *TextView) Text() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.text
}

// Button is a start control with an enabled flag.
type Button struct {
	Label string

	mu       sync.RWMutex
	disabled bool
}

// SetEnabled implements Controls.
func (b *Button) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.disabled = !enabled
	b.mu.Unlock()
}

// Enabled reports whether the button can be pressed. Buttons start enabled.
func (b *Button) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.disabled
}

// Buttons toggles several controls together.
type Buttons []Controls

// SetEnabled implements Controls.
func (bs Buttons) SetEnabled(enabled bool) {
	for _, b := range bs {
		b.SetEnabled(enabled)
	}
}
