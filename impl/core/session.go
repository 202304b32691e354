package core

import "sync"

// Conversation state per user. Only two states exist: idle, and waiting for
// a captcha answer after /invite. Held in memory on purpose: a restart
// drops everyone back to idle and the next free-text message is simply
// ignored until the user re-requests.
type state int

const (
	stateIdle state = iota
	stateAwaitingCaptcha
)

type sessions struct {
	mu     sync.Mutex
	states map[int64]state
}

func newSessions() *sessions {
	return &sessions{states: make(map[int64]state)}
}

func (s *sessions) set(id int64, st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == stateIdle {
		delete(s.states, id)
		return
	}
	s.states[id] = st
}

// takeAwaiting atomically checks for the awaiting-captcha state and resets
// it to idle, so one challenge admits exactly one verification attempt even
// under concurrent messages.
func (s *sessions) takeAwaiting(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[id] != stateAwaitingCaptcha {
		return false
	}
	delete(s.states, id)
	return true
}
