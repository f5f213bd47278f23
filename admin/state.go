// Package admin holds process-wide site state changed through the admin shell.
package admin

import (
	"sync"
	"sync/atomic"
)

// State is the announcement banner and stylesheet epoch shown on video pages.
type State struct {
	mu           sync.RWMutex
	announcement string
	announced    bool

	style atomic.Uint64
}

func NewState() *State {
	return &State{}
}

// Announcement returns the current banner text and whether one is set.
func (s *State) Announcement() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.announcement, s.announced
}

func (s *State) Announce(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcement = text
	s.announced = true
}

func (s *State) Denounce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcement = ""
	s.announced = false
}

func (s *State) Style() uint64 {
	return s.style.Load()
}

// BumpStyle increments the style epoch and returns the new value.
func (s *State) BumpStyle() uint64 {
	return s.style.Add(1)
}
