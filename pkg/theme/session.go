package theme

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/sassdata/pkg/value"
)

// Session holds the current theme of one build. Every compilation gets its
// own session so builds never observe each other's theme.
//
// The importer reads the theme from the Dart Sass reader goroutine while
// callers may inspect it from elsewhere, so access is synchronized.
type Session struct {
	id string

	mu    sync.RWMutex
	theme *value.Map
	path  string
	setAt time.Time
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Theme returns the current theme. Callers must treat it as read-only.
func (s *Session) Theme() (*value.Map, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme, s.theme != nil
}

// ThemePath returns the file the current theme was loaded from.
func (s *Session) ThemePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// SetTheme replaces the current theme.
func (s *Session) SetTheme(path string, t *value.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
	s.path = path
	s.setAt = time.Now()
}

// UpdatedAt returns when the theme was last set; zero if never.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.setAt
}

// Reset clears the current theme.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = nil
	s.path = ""
	s.setAt = time.Time{}
}
