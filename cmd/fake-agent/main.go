// ABOUTME: Fake browser agent for E2E testing; connects over websocket and answers with canned data.
// ABOUTME: Usage: fake-agent [-url ws://127.0.0.1:8765/agent] [-origin chrome-extension://id] [-ping 20s]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/browser-bridge/internal/agent"
	"github.com/2389/browser-bridge/internal/envelope"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:8765/agent", "bridge agent websocket URL")
	origin := flag.String("origin", "", "Origin header to send")
	ping := flag.Duration("ping", 20*time.Second, "interval between connection.ping probes (0 disables)")
	failAction := flag.String("fail", "", "action to answer with an error envelope")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a := &fakeAgent{pingInterval: *ping, failAction: *failAction}
	for {
		err := a.run(ctx, *url, *origin)
		if ctx.Err() != nil {
			return
		}
		log.Printf("connection ended: %v; reconnecting in 2s", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

type fakeAgent struct {
	pingInterval time.Duration
	failAction   string

	writeMu sync.Mutex
	ws      *websocket.Conn
}

func (a *fakeAgent) run(ctx context.Context, url, origin string) error {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer ws.Close()

	a.ws = ws
	log.Printf("connected to %s", url)

	stop := context.AfterFunc(ctx, func() {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = ws.Close()
	})
	defer stop()

	if a.pingInterval > 0 {
		pingCtx, cancelPing := context.WithCancel(ctx)
		defer cancelPing()
		go a.pingLoop(pingCtx)
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("recv error: %w", err)
		}

		env, err := envelope.Decode(raw)
		if err != nil {
			log.Printf("ignoring bad frame: %v", err)
			continue
		}
		if env.Kind != envelope.KindRequest {
			continue
		}
		if env.Action == agent.PingAction {
			log.Printf("keepalive ack [%s]", env.ID)
			continue
		}

		log.Printf("request [%s] %s %s", env.ID, env.Action, env.Data)
		if err := a.send(a.reply(env)); err != nil {
			log.Printf("send error: %v", err)
		}
	}
}

func (a *fakeAgent) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(a.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe := envelope.Envelope{
				ID:     uuid.NewString(),
				Kind:   envelope.KindRequest,
				Action: agent.PingAction,
				Data:   json.RawMessage(`{}`),
			}
			if err := a.send(probe); err != nil {
				log.Printf("ping error: %v", err)
				return
			}
		}
	}
}

func (a *fakeAgent) send(env envelope.Envelope) error {
	raw, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.ws.WriteMessage(websocket.TextMessage, raw)
}

// reply builds the response or error envelope for req.
func (a *fakeAgent) reply(req envelope.Envelope) envelope.Envelope {
	out := envelope.Envelope{ID: req.ID, Kind: envelope.KindResponse, Action: req.Action}

	data, err := canned(req)
	if err == nil && req.Action == a.failAction {
		err = errors.New("forced failure")
	}
	if err != nil {
		out.Kind = envelope.KindError
		out.Data, _ = json.Marshal(envelope.ErrorPayload{Code: "fake_agent_error", Message: err.Error()})
		return out
	}

	out.Data, _ = json.Marshal(data)
	return out
}

var fakeTab = map[string]any{
	"id": 1, "windowId": 1, "index": 0, "active": true,
	"url": "https://go.dev/", "title": "The Go Programming Language",
}

// canned returns plausible data for each action the catalog can send.
func canned(req envelope.Envelope) (any, error) {
	var params map[string]any
	_ = json.Unmarshal(req.Data, &params)

	switch req.Action {
	case "tabs.list":
		return map[string]any{"tabs": []any{fakeTab}}, nil
	case "tabs.get_active":
		return fakeTab, nil
	case "tabs.create", "tabs.duplicate":
		tab := map[string]any{"id": 2, "windowId": 1, "active": true, "url": params["url"]}
		return tab, nil
	case "tabs.close", "tabs.activate", "tabs.reload", "tabs.group",
		"windows.close", "windows.focus",
		"bookmarks.remove", "history.delete_url",
		"navigation.back", "navigation.forward":
		return map[string]any{"success": true}, nil
	case "navigation.go":
		return map[string]any{"success": true, "url": params["url"]}, nil
	case "history.search", "history.recent":
		return map[string]any{"items": []any{
			map[string]any{"url": "https://go.dev/doc/", "title": "Documentation", "visitCount": 3},
		}}, nil
	case "bookmarks.search":
		return map[string]any{"bookmarks": []any{
			map[string]any{"id": "10", "title": "Go", "url": "https://go.dev/"},
		}}, nil
	case "bookmarks.create":
		return map[string]any{"id": "11", "title": params["title"], "url": params["url"]}, nil
	case "content.get_text":
		return map[string]any{"text": "The Go Programming Language", "truncated": false}, nil
	case "content.get_html":
		return map[string]any{"html": "<html><body><h1>Go</h1></body></html>", "truncated": false}, nil
	case "content.get_links":
		return map[string]any{"links": []any{
			map[string]any{"href": "https://go.dev/doc/", "text": "Documentation"},
		}}, nil
	case "content.find":
		return map[string]any{"matches": 1, "text": params["text"]}, nil
	case "content.screenshot":
		return map[string]any{"dataUrl": "data:image/png;base64,iVBORw0KGgo="}, nil
	case "windows.list":
		return map[string]any{"windows": []any{map[string]any{"id": 1, "focused": true, "tabs": 1}}}, nil
	case "windows.create":
		return map[string]any{"id": 2, "focused": true}, nil
	case "requests.start_monitoring", "requests.stop_monitoring":
		return map[string]any{"monitoring": strings.HasSuffix(req.Action, "start_monitoring")}, nil
	case "requests.get":
		return map[string]any{"requests": []any{
			map[string]any{"url": "https://go.dev/", "method": "GET", "status": 200},
		}}, nil
	}
	return nil, fmt.Errorf("unsupported action %q", req.Action)
}
