package chat

import (
	"errors"
	"slices"
	"sync"

	"github.com/kailas-cloud/risclient/internal/domain"
)

// State is the turn state of a session.
type State int

// Session states.
const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	if s == AwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

// Request is the /chat payload.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Response is the /chat reply. History is the authoritative transcript.
type Response struct {
	History []string `json:"history"`
	Reply   string   `json:"reply,omitempty"`
}

// Validate rejects responses without a history field.
func (r *Response) Validate() error {
	if r.History == nil {
		return errors.New("response has no history")
	}
	return nil
}

// Session holds one conversation's transcript and serializes its turns.
// At most one turn is in flight; a second Begin is rejected until Complete or Fail.
type Session struct {
	mu         sync.Mutex
	id         string
	state      State
	transcript []string
	pending    string
}

// NewSession creates an idle session with an empty transcript.
func NewSession(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Pending returns the unsent input.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPending replaces the unsent input.
func (s *Session) SetPending(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = text
}

// Begin moves Idle -> AwaitingResponse and returns the request to send.
// The message becomes the pending input so a failed turn can be retried.
func (s *Session) Begin(message string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AwaitingResponse {
		return Request{}, domain.ErrTurnInFlight
	}
	s.state = AwaitingResponse
	s.pending = message
	return Request{SessionID: s.id, Message: message}, nil
}

// Complete replaces the transcript with the server history and clears pending input.
func (s *Session) Complete(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = slices.Clone(resp.History)
	s.pending = ""
	s.state = Idle
}

// Fail returns to Idle keeping transcript and pending input untouched.
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
}
