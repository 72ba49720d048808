package ris

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/risclient/internal/domain/chat"
	"github.com/kailas-cloud/risclient/internal/testutil/backend"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

func TestChatSession_Send_DemoHello(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/chat", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteJSON(w, http.StatusOK, map[string]any{"history": []string{"hello", "hi there"}})
	})

	s := c.Chat().Session("demo")
	s.SetPending("hello")
	reply, err := s.SendPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call, _ := srv.LastCall()
	if want := `{"session_id":"demo","message":"hello"}`; string(call.Body) != want {
		t.Errorf("body = %s, want %s", call.Body, want)
	}
	if got := s.Transcript(); !slices.Equal(got, []string{"hello", "hi there"}) {
		t.Errorf("transcript = %v", got)
	}
	if !slices.Equal(reply.History, []string{"hello", "hi there"}) || reply.Reply != "" {
		t.Errorf("reply = %+v", reply)
	}
	if s.Pending() != "" {
		t.Errorf("pending = %q, want empty", s.Pending())
	}
	if s.State() != ChatIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestChatSession_Send_ReplacesTranscript(t *testing.T) {
	histories := [][]string{{"a", "b"}, {"server", "rewrote", "it"}}
	turn := 0
	mt := &mockTransport{doFn: func(_ context.Context, _ rest.Request, out any) error {
		h := histories[turn]
		turn++
		return respond(out, map[string]any{"history": h, "reply": "r"})
	}}
	s := testClient(mt).Chat().Session("s1")

	if _, err := s.Send(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply, err := s.Send(context.Background(), "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Транскрипт равен истории сервера, а не старому транскрипту с добавленным сообщением.
	if got := s.Transcript(); !slices.Equal(got, histories[1]) {
		t.Errorf("transcript = %v, want %v", got, histories[1])
	}
	if reply.Reply != "r" {
		t.Errorf("reply = %q", reply.Reply)
	}
}

func TestChatSession_Send_FailureKeepsTranscript(t *testing.T) {
	c, srv := newBackendClient(t)
	s := c.Chat().Session("s1")

	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := s.Transcript()

	srv.Handle(http.MethodPost, "/chat", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteDetail(w, http.StatusServiceUnavailable, "llm overloaded")
	})
	_, err := s.Send(context.Background(), "are you there?")
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}

	if got := s.Transcript(); !slices.Equal(got, before) {
		t.Errorf("transcript = %v, want %v", got, before)
	}
	if s.Pending() != "are you there?" {
		t.Errorf("pending = %q, want the failed message", s.Pending())
	}
	if s.State() != ChatIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestChatSession_Send_MissingHistory(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/chat", func(w http.ResponseWriter, _ *http.Request) {
		backend.WriteJSON(w, http.StatusOK, map[string]any{"reply": "no history"})
	})
	s := c.Chat().Session("s1")

	_, err := s.Send(context.Background(), "hi")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if len(s.Transcript()) != 0 {
		t.Errorf("transcript = %v, want empty", s.Transcript())
	}
	if s.Pending() != "hi" {
		t.Errorf("pending = %q", s.Pending())
	}
}

func TestChatSession_Send_RejectsOverlap(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	mt := &mockTransport{doFn: func(_ context.Context, _ rest.Request, out any) error {
		close(started)
		<-release
		return respond(out, map[string]any{"history": []string{"one", "reply"}})
	}}
	s := testClient(mt).Chat().Session("s1")

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "one")
		done <- err
	}()
	<-started

	if s.State() != ChatAwaitingResponse {
		t.Fatalf("state = %v, want awaiting response", s.State())
	}
	_, err := s.Send(context.Background(), "two")
	if !errors.Is(err, ErrTurnInFlight) || !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first send: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first send did not finish")
	}

	if n := mt.callCount(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if got := s.Transcript(); !slices.Equal(got, []string{"one", "reply"}) {
		t.Errorf("transcript = %v", got)
	}
	// Отклонённое сообщение не затирает pending первого хода.
	if s.Pending() != "" {
		t.Errorf("pending = %q, want empty", s.Pending())
	}
}

func TestChatSession_Send_ContextCanceled(t *testing.T) {
	c, srv := newBackendClient(t)
	srv.Handle(http.MethodPost, "/chat", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	s := c.Chat().Session("s1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Send(ctx, "slow")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded in chain, got %v", err)
	}
	if s.State() != ChatIdle || s.Pending() != "slow" {
		t.Errorf("state=%v pending=%q", s.State(), s.Pending())
	}
}

func TestChatService_Session_Shared(t *testing.T) {
	svc := testClient(&mockTransport{}).Chat()

	a := svc.Session("demo")
	b := svc.Session("demo")
	if a != b {
		t.Error("same id must return the same session")
	}
	if a.ID() != "demo" {
		t.Errorf("id = %q", a.ID())
	}
	if svc.Session("other") == a {
		t.Error("different ids must not share a session")
	}
}

func TestChatService_NewSession(t *testing.T) {
	svc := testClient(&mockTransport{}).Chat()

	a := svc.NewSession()
	b := svc.NewSession()
	if a.ID() == b.ID() {
		t.Error("generated ids must differ")
	}
	if _, err := uuid.Parse(a.ID()); err != nil {
		t.Errorf("id %q is not a uuid: %v", a.ID(), err)
	}
	if svc.Session(a.ID()) != a {
		t.Error("generated session must be reachable by id")
	}
}

func TestChatState_Aliases(t *testing.T) {
	if ChatIdle != chat.Idle || ChatAwaitingResponse != chat.AwaitingResponse {
		t.Error("chat states must mirror the domain states")
	}
}
