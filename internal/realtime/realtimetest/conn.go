// Package realtimetest provides an in-memory realtime.Conn for tests.
package realtimetest

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
)

// ErrFull is returned by Send once Capacity events are buffered.
var ErrFull = errors.New("recorder full")

// Conn records every event pushed to it.
type Conn struct {
	id     string
	userID string

	// Capacity caps the number of accepted events; 0 means unlimited.
	Capacity int

	mu     sync.Mutex
	events []realtime.Outbound
	closed bool
	code   int
}

// NewConn returns a recorder for userID with a random connection id.
func NewConn(userID string) *Conn {
	return &Conn{id: uuid.NewString(), userID: userID}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// Send records ev unless the recorder is closed or full. A full recorder
// closes itself, like a real connection with an exhausted buffer.
func (c *Conn) Send(ev realtime.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrConnClosed
	}
	if c.Capacity > 0 && len(c.events) >= c.Capacity {
		c.closed = true
		c.code = realtime.CloseSlowConsumer
		return ErrFull
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *Conn) Close(code int, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.code = code
	}
}

// Closed reports whether Close was called and with which code.
func (c *Conn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code
}

// Events returns a copy of everything recorded so far.
func (c *Conn) Events() []realtime.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.Outbound, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns recorded events whose EventType equals t.
func (c *Conn) OfType(t string) []realtime.Outbound {
	var out []realtime.Outbound
	for _, ev := range c.Events() {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets recorded events.
func (c *Conn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
