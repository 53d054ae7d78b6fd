package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type queryAuth struct{}

func (queryAuth) Authenticate(r *http.Request) (string, error) {
	if u := r.URL.Query().Get("user"); u != "" {
		return u, nil
	}
	return "", errors.New("no user")
}

// echo answers every message with an "echo" event carrying the same payload.
type echo struct {
	connected    chan string
	disconnected chan string
}

func (e *echo) OnConnect(c *Client)    { e.connected <- c.Identity() }
func (e *echo) OnDisconnect(c *Client) { e.disconnected <- c.Identity() }
func (e *echo) OnMessage(c *Client, msg Message) {
	c.Deliver(Message{Type: "echo", Payload: msg.Payload})
}

func startServer(t *testing.T) (*httptest.Server, *echo) {
	t.Helper()
	h := &echo{connected: make(chan string, 4), disconnected: make(chan string, 4)}
	srv := NewServer(h, queryAuth{}, nil, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, h
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/?" + query
}

func expect(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestServerRejectsUnauthenticated(t *testing.T) {
	ts, _ := startServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err == nil {
		t.Fatalf("dial without credentials succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response = %v, want 401", resp)
	}
}

func TestServerRoundTrip(t *testing.T) {
	ts, h := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "user=ana"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	expect(t, h.connected, "ana")

	out, err := NewMessage("move", map[string]float64{"x": 10, "y": 20})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if err := conn.WriteJSON(out); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var in Message
	if err := conn.ReadJSON(&in); err != nil {
		t.Fatalf("read: %v", err)
	}
	var pos struct{ X, Y float64 }
	if in.Type != "echo" || in.Decode(&pos) != nil || pos.X != 10 || pos.Y != 20 {
		t.Fatalf("echo = %+v (%+v)", in, pos)
	}

	conn.Close()
	expect(t, h.disconnected, "ana")
}
