// Package realtime holds the in-process websocket machinery of the chat
// relay: the connection registry used for fan-out, the gorilla/websocket
// connection wrapper, the tagged wire protocol, and the client-side
// reconciliation helpers.
package realtime

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Conn is one live transport connection as seen by the registry and the
// services that push to it.
type Conn interface {
	ID() string
	UserID() string
	// Send enqueues ev without blocking. It fails once the connection is
	// closed or when its outbound buffer is full.
	Send(ev Outbound) error
	Close(code int, reason string)
}

// Registry maps user identities to their live connections on this process.
// It is safe for concurrent use. State is never persisted or shared across
// processes; connections re-register after a restart.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn // userID -> connID -> conn
	log   zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]Conn),
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// Register adds conn to userID's set. Registering the same pair twice is a
// no-op.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	set := r.users[userID]
	if set == nil {
		set = make(map[string]Conn)
		r.users[userID] = set
	}
	_, exists := set[conn.ID()]
	set[conn.ID()] = conn
	r.mu.Unlock()

	if !exists {
		liveConnections.Inc()
		r.log.Debug().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("connection registered")
	}
}

// Unregister removes connID from userID's set and drops the user entry once
// it is empty. Unknown pairs are ignored.
func (r *Registry) Unregister(userID, connID string) {
	r.mu.Lock()
	set := r.users[userID]
	_, exists := set[connID]
	if exists {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
	r.mu.Unlock()

	if exists {
		liveConnections.Dec()
		r.log.Debug().Str("user_id", userID).Str("conn_id", connID).Msg("connection unregistered")
	}
}

// ConnectionsFor returns a snapshot of userID's live connections, possibly
// empty.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Online reports whether userID has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// Users lists every user with a live connection, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Count returns the number of live connections across all users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.users {
		n += len(set)
	}
	return n
}

// Deliver sends ev to a single connection and records the outcome.
func (r *Registry) Deliver(conn Conn, ev Outbound) error {
	err := conn.Send(ev)
	observeOutbound(ev.EventType(), err)
	if err != nil {
		r.log.Warn().Err(err).
			Str("user_id", conn.UserID()).
			Str("conn_id", conn.ID()).
			Str("event", ev.EventType()).
			Msg("push dropped")
	}
	return err
}

// Push sends ev to every live connection of userID, skipping the connection
// whose id equals skipConnID (pass "" to skip none). A failure on one
// connection does not stop delivery to the others. It returns the number of
// connections that accepted the event.
func (r *Registry) Push(userID string, ev Outbound, skipConnID string) int {
	delivered := 0
	for _, c := range r.ConnectionsFor(userID) {
		if skipConnID != "" && c.ID() == skipConnID {
			continue
		}
		if r.Deliver(c, ev) == nil {
			delivered++
		}
	}
	return delivered
}

// CloseAll closes and forgets every registered connection.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	var all []Conn
	for _, set := range r.users {
		for _, c := range set {
			all = append(all, c)
		}
	}
	r.users = make(map[string]map[string]Conn)
	r.mu.Unlock()

	liveConnections.Sub(float64(len(all)))
	for _, c := range all {
		c.Close(code, reason)
	}
}
