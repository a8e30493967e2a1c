package services

import "sync"

// SessionState is the advisory "where the user is" state: the active
// user and the account whose movements are being viewed. Zero means
// unset; a zero CurrentUserID is the onboarding state.
type SessionState struct {
	CurrentUserID     int64
	SelectedAccountID int64
}

// Session holds the one SessionState for the process. All operations
// that depend on the current user take the state as an explicit value;
// nothing reads it ambiently.
type Session struct {
	mu    sync.Mutex
	state SessionState
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Get() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Set(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// SelectAccount changes the viewed account, keeping the current user.
func (s *Session) SelectAccount(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedAccountID = accountID
}

// ClearAccountIf unsets the selected account if it matches id.
func (s *Session) ClearAccountIf(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SelectedAccountID == id {
		s.state.SelectedAccountID = 0
	}
}

// Reset drops the whole state, re-entering onboarding.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{}
}
