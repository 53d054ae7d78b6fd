// Command client is a line-oriented terminal client for manual testing.
//
// Each input line is "<event> [json payload]", for example:
//
//	join-room {"room":"r1"}
//	start-game {"room":"r1","kind":"deduction"}
//	move {"up":true}
//	ping
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"minigames/internal/auth"
	"minigames/internal/network"
)

var (
	pingStart time.Time
	pingMu    sync.Mutex
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	log := logger.Sugar()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	addrs := []string{"localhost:8080"}
	if env := os.Getenv("SERVER_ADDRESSES"); env != "" {
		addrs = strings.Split(env, ",")
	}

	token, err := credential()
	if err != nil {
		log.Fatalf("[Client] %v", err)
	}

	conn := dial(addrs, token, log)
	if conn == nil {
		log.Fatalf("[Client] no server reachable at %v", addrs)
	}
	defer conn.Close()

	pongs := make(chan time.Duration, 1)
	conn.SetPongHandler(func(string) error {
		pingMu.Lock()
		defer pingMu.Unlock()
		if !pingStart.IsZero() {
			select {
			case pongs <- time.Since(pingStart):
			default:
			}
			pingStart = time.Time{}
		}
		return nil
	})

	done := make(chan struct{})
	go readLoop(conn, done, log)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			handleLine(conn, scanner.Text(), pongs, log)
		}
	}()

	select {
	case <-done:
		log.Info("[Client] disconnected")
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

// credential prefers TOKEN and falls back to signing one locally for
// USERNAME when JWT_SECRET is available.
func credential() (string, error) {
	if t := os.Getenv("TOKEN"); t != "" {
		return t, nil
	}
	secret, user := os.Getenv("JWT_SECRET"), os.Getenv("USERNAME")
	if secret == "" || user == "" {
		return "", fmt.Errorf("set TOKEN, or JWT_SECRET and USERNAME")
	}
	return auth.NewResolver(secret).Issue(user, user, 24*time.Hour)
}

func dial(addrs []string, token string, log *zap.SugaredLogger) *websocket.Conn {
	for _, addr := range addrs {
		u := url.URL{Scheme: "ws", Host: strings.TrimSpace(addr), Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
		var resp *http.Response
		conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err == nil {
			log.Infof("[Client] connected to %s", addr)
			return conn
		}
		if resp != nil {
			log.Warnf("[Client] %s refused the upgrade: %s", addr, resp.Status)
			continue
		}
		log.Warnf("[Client] cannot reach %s: %v", addr, err)
	}
	return nil
}

func readLoop(conn *websocket.Conn, done chan struct{}, log *zap.SugaredLogger) {
	defer close(done)
	for {
		var msg network.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[Client] read: %v", err)
			}
			return
		}
		printMessage(msg)
	}
}

func handleLine(conn *websocket.Conn, line string, pongs chan time.Duration, log *zap.SugaredLogger) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if line == "ping" {
		pingMu.Lock()
		pingStart = time.Now()
		pingMu.Unlock()
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			log.Warnf("[Client] ping: %v", err)
			return
		}
		select {
		case d := <-pongs:
			fmt.Printf("pong after %v\n", d)
		case <-time.After(3 * time.Second):
			fmt.Println("ping timed out")
		}
		return
	}

	event, body, _ := strings.Cut(line, " ")
	msg := network.Message{Type: event}
	if body = strings.TrimSpace(body); body != "" {
		if !json.Valid([]byte(body)) {
			fmt.Println("payload must be valid JSON")
			return
		}
		msg.Payload = json.RawMessage(body)
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Warnf("[Client] send %s: %v", event, err)
	}
}

func printMessage(msg network.Message) {
	if len(msg.Payload) == 0 {
		fmt.Printf("<- %s\n", msg.Type)
		return
	}
	var v any
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		fmt.Printf("<- %s %s\n", msg.Type, msg.Payload)
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Printf("<- %s %s\n", msg.Type, pretty)
}
