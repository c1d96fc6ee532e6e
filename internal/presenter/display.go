package presenter

import (
	"sync"
	"unicode/utf8"
)

// EventKind names a change to the message log.
type EventKind string

const (
	EventAppend EventKind = "append"
	EventUpdate EventKind = "update"
	EventRemove EventKind = "remove"
	EventScroll EventKind = "scroll"
)

// Event is delivered to a Display after every log mutation.
//
// While a reply is being typed, its update events carry only the message
// ID, sender and InProgress flag plus a Patch; the update that completes
// the bubble carries the whole message. Scroll events carry only the ID of
// the message to bring into view.
type Event struct {
	Kind    EventKind `json:"type"`
	Message Message   `json:"message"`
	Patch   *Patch    `json:"patch,omitempty"`
}

// Patch is one typing step, expressed as an edit of the HTML left on
// screen by the previous event for the same message.
type Patch struct {
	// Keep is the number of leading bytes of the previous HTML that stay.
	Keep int `json:"keep"`
	// Tail replaces everything after Keep.
	Tail string `json:"tail"`
	// Delta is the raw text revealed by this step.
	Delta string `json:"delta"`
}

// Apply returns the HTML shown after the patch.
func (p *Patch) Apply(prev string) string {
	keep := min(p.Keep, len(prev))
	return prev[:keep] + p.Tail
}

// diffHTML returns the patch turning prev into next. Keep always falls on
// a rune boundary.
func diffHTML(prev, next string) *Patch {
	n := min(len(prev), len(next))
	k := 0
	for k < n && prev[k] == next[k] {
		k++
	}
	for k > 0 && k < len(next) && !utf8.RuneStart(next[k]) {
		k--
	}
	return &Patch{Keep: k, Tail: next[k:]}
}

// Display renders log events. Show is called in mutation order and never
// concurrently for the same Presenter.
type Display interface {
	Show(Event)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Event)

func (f DisplayFunc) Show(e Event) { f(e) }

// Recorder is a Display that keeps every event it is shown.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Show(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
