// Package lifecycle tracks process state shared by the server loop and the health handler.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State records when the process started and whether it is draining.
type State struct {
	started      time.Time
	shuttingDown atomic.Bool
}

// New returns a State that started now.
func New() *State {
	return &State{started: time.Now()}
}

// SetShuttingDown sets the drain flag. Call when SIGTERM/SIGINT is received.
// The health handler reports shutting-down with 503 while true.
func (s *State) SetShuttingDown(v bool) {
	s.shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func (s *State) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Uptime returns the time since New.
func (s *State) Uptime() time.Duration {
	return time.Since(s.started)
}
