package presenter

import (
	"sync"

	"github.com/google/uuid"
)

// Log is the ordered, append-only message log of one chat. Only loading
// messages may be removed, and only in-progress messages may be updated.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds m to the end of the log. An ID is generated if m has none.
func (l *Log) Append(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
	return m
}

// Update applies fn to the in-progress message id and returns the result.
func (l *Log) Update(id string, fn func(*Message)) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return Message{}, ErrUnknownMessage
	}
	if !l.messages[i].InProgress {
		return Message{}, ErrNotInProgress
	}
	fn(&l.messages[i])
	l.messages[i].ID = id
	return l.messages[i], nil
}

// Remove deletes the loading message id.
func (l *Log) Remove(id string) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return Message{}, ErrUnknownMessage
	}
	m := l.messages[i]
	if m.Sender != SenderLoading {
		return Message{}, ErrNotRemovable
	}
	l.messages = append(l.messages[:i], l.messages[i+1:]...)
	return m, nil
}

// Get returns the message id.
func (l *Log) Get(id string) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexOf(id)
	if i < 0 {
		return Message{}, false
	}
	return l.messages[i], true
}

// Snapshot returns a copy of the log in display order.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// indexOf scans from the end; recent messages are the ones touched.
func (l *Log) indexOf(id string) int {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].ID == id {
			return i
		}
	}
	return -1
}
