package pushws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
)

var upgrader = websocket.Upgrader{}

func serverURL(t *testing.T, srv *httptest.Server) *url.URL {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return u
}

func receive(t *testing.T, ch <-chan domain.NotificationCommand) domain.NotificationCommand {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return domain.NotificationCommand{}
	}
}

func TestURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{base: "http://localhost:3000", want: "ws://localhost:3000?userId=u+1"},
		{base: "https://feed.example.com", want: "wss://feed.example.com?userId=u+1"},
	}
	for _, tc := range cases {
		base, _ := url.Parse(tc.base)
		got, err := URL(base, "u 1")
		if err != nil {
			t.Fatalf("URL(%s): %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("URL(%s) = %s, want %s", tc.base, got, tc.want)
		}
	}

	base, _ := url.Parse("ftp://x")
	if _, err := URL(base, "u1"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	base, _ = url.Parse("http://x")
	if _, err := URL(base, ""); !errors.Is(err, domain.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestDecodeAndCommand(t *testing.T) {
	event, err := Decode([]byte(`{"type":"NEW_POST","post":{"id":"p1","authorId":"a1","content":"hi"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cmd, ok := Command(event)
	if !ok || cmd.Kind != domain.CommandEnqueue || cmd.Post.ID != "p1" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	event, _ = Decode([]byte(`{"type":"DELETE_POST","post":{"id":"p1","authorId":"a1"}}`))
	cmd, ok = Command(event)
	if !ok || cmd.Kind != domain.CommandDismissAuthor || cmd.AuthorID != "a1" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	event, _ = Decode([]byte(`{"type":"EDIT_POST","post":{"id":"p1"}}`))
	if _, ok := Command(event); ok {
		t.Fatal("unknown event type must be dropped")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRunDeliversCommandsOnce(t *testing.T) {
	var gotUser atomic.Value
	var connections int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&connections, 1)
		gotUser.Store(r.URL.Query().Get("userId"))
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"NEW_POST","post":{"id":"p1","authorId":"A"}}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"EDIT_POST","post":{"id":"p1","authorId":"A"}}`))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"DELETE_POST","post":{"id":"p1","authorId":"A"}}`))
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer srv.Close()

	ch := New(serverURL(t, srv), Config{Reconnect: false}, zerolog.Nop())
	if ch.State() != domain.PushDisconnected {
		t.Fatalf("expected DISCONNECTED initially, got %s", ch.State())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- ch.Run(context.Background(), "u1") }()

	first := receive(t, ch.Commands())
	if first.Kind != domain.CommandEnqueue || first.Post.ID != "p1" {
		t.Fatalf("unexpected first command %+v", first)
	}
	second := receive(t, ch.Commands())
	if second.Kind != domain.CommandDismissAuthor || second.AuthorID != "A" {
		t.Fatalf("unexpected second command %+v", second)
	}

	select {
	case err := <-errCh:
		if !IsChannelFailure(err) {
			t.Fatalf("expected channel failure after close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after server close")
	}
	if got := gotUser.Load(); got != "u1" {
		t.Fatalf("expected userId=u1, got %v", got)
	}
	if atomic.LoadInt32(&connections) != 1 {
		t.Fatalf("expected exactly one connection without reconnect, got %d", connections)
	}
	if ch.State() != domain.PushDisconnected {
		t.Fatalf("expected DISCONNECTED after close, got %s", ch.State())
	}
}

func TestRunDialFailureWithoutReconnect(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := serverURL(t, srv)
	srv.Close()

	ch := New(base, Config{}, zerolog.Nop())
	err := ch.Run(context.Background(), "u1")
	if !errors.Is(err, domain.ErrChannelFailure) {
		t.Fatalf("expected ErrChannelFailure, got %v", err)
	}
	if ch.State() != domain.PushDisconnected {
		t.Fatalf("expected DISCONNECTED, got %s", ch.State())
	}
}

func TestRunReconnects(t *testing.T) {
	var connections int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&connections, 1)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if n == 1 {
			// Первое соединение обрывается без события.
			return
		}
		ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"NEW_POST","post":{"id":"p2","authorId":"B"}}`))
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ch := New(serverURL(t, srv), Config{Reconnect: true, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 20 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ch.Run(ctx, "u1") }()

	cmd := receive(t, ch.Commands())
	if cmd.Post.ID != "p2" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if atomic.LoadInt32(&connections) < 2 {
		t.Fatalf("expected a reconnect, got %d connections", connections)
	}
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRunGivesUpAfterMaxElapsed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := serverURL(t, srv)
	srv.Close()

	ch := New(base, Config{Reconnect: true, InitialBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond, MaxElapsed: 50 * time.Millisecond}, zerolog.Nop())
	err := ch.Run(context.Background(), "u1")
	if !errors.Is(err, domain.ErrChannelFailure) {
		t.Fatalf("expected ErrChannelFailure, got %v", err)
	}
}
