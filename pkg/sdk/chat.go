package ris

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/risclient/internal/domain/chat"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

const chatPath = "/chat"

// ChatService hands out chat sessions. One id maps to one session, so every
// caller using the same id shares its turn gate and transcript.
type ChatService struct {
	transport transport
	obs       *observer

	mu       sync.Mutex
	sessions map[string]*ChatSession
}

func newChatService(t transport, obs *observer) *ChatService {
	return &ChatService{transport: t, obs: obs, sessions: make(map[string]*ChatSession)}
}

// Session returns the session for id, creating it on first use.
func (s *ChatService) Session(id string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs, ok := s.sessions[id]; ok {
		return cs
	}
	cs := &ChatSession{state: chat.NewSession(id), transport: s.transport, obs: s.obs}
	s.sessions[id] = cs
	return cs
}

// NewSession creates a session with a freshly generated id.
func (s *ChatService) NewSession() *ChatSession {
	return s.Session(uuid.NewString())
}

// ChatSession is one conversation. Turns are serialized: Send while another
// turn is in flight fails with ErrTurnInFlight without a request.
type ChatSession struct {
	state     *chat.Session
	transport transport
	obs       *observer
}

// ID returns the session identifier sent with every turn.
func (s *ChatSession) ID() string { return s.state.ID() }

// State reports whether a turn is in flight.
func (s *ChatSession) State() ChatState { return s.state.State() }

// Transcript returns a copy of the last history received from the server.
func (s *ChatSession) Transcript() []string { return s.state.Transcript() }

// Pending returns the unsent input. It holds the last message after a failed turn.
func (s *ChatSession) Pending() string { return s.state.Pending() }

// SetPending replaces the unsent input.
func (s *ChatSession) SetPending(text string) { s.state.SetPending(text) }

// SendPending sends the current pending input.
func (s *ChatSession) SendPending(ctx context.Context) (ChatReply, error) {
	return s.Send(ctx, s.state.Pending())
}

// Send submits message as the next turn.
// On success the transcript becomes the server history and pending input is cleared.
// On failure the transcript is unchanged and message stays pending.
func (s *ChatSession) Send(ctx context.Context, message string) (reply ChatReply, err error) {
	start := time.Now()
	defer func() { s.obs.observe("chat.send", start, err) }()

	req, err := s.state.Begin(message)
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat: %w", err)
	}

	var resp chat.Response
	if err = s.transport.Do(ctx, rest.Request{Method: http.MethodPost, Path: chatPath, JSON: req}, &resp); err != nil {
		s.state.Fail()
		return ChatReply{}, fmt.Errorf("chat: %w", err)
	}
	s.state.Complete(resp)

	return ChatReply{Reply: resp.Reply, History: slices.Clone(resp.History)}, nil
}
