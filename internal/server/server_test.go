package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/desertthunder/ratebot/internal/bot"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	events   []bot.Event
	commands []bot.Command
	reply    bot.Reply
	err      error

	// block, when set, holds HandleEvent until it is closed or ctx is done
	block   chan struct{}
	started chan struct{}
	ctxErr  error
}

func (f *fakeDispatcher) HandleEvent(ctx context.Context, ev bot.Event) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			f.mu.Lock()
			f.ctxErr = ctx.Err()
			f.mu.Unlock()
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeDispatcher) HandleCommand(ctx context.Context, cmd bot.Command) bot.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.reply
}

func (f *fakeDispatcher) handled() []bot.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bot.Event(nil), f.events...)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func testRouter(d *fakeDispatcher, db Pinger) *BasicRouter {
	return NewRouter(d, db, log.New(&strings.Builder{}))
}

func postEvent(t *testing.T, router *BasicRouter, body string, headers map[string]string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Drain(ctx); err != nil {
		t.Fatalf("failed to drain dispatched events: %v", err)
	}
	return w.Code
}

const messageEvent = `{
	"type": "event_callback",
	"event_id": "Ev2",
	"event": {"type": "message", "user": "U1", "text": "hi", "ts": "1.0", "channel": "C1"}
}`

func TestEventsHandler(t *testing.T) {
	t.Run("URL Verification", func(t *testing.T) {
		d := &fakeDispatcher{}
		body := `{"type":"url_verification","token":"x","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`

		w := httptest.NewRecorder()
		testRouter(d, fakePinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body)))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var got map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if got["challenge"] != "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P" {
			t.Errorf("unexpected challenge %q", got["challenge"])
		}
		if len(d.handled()) != 0 {
			t.Errorf("verification must not dispatch, got %v", d.handled())
		}
	})

	t.Run("Reaction Callback", func(t *testing.T) {
		d := &fakeDispatcher{}
		body := `{
			"type": "event_callback",
			"event_id": "Ev1",
			"event": {
				"type": "reaction_added",
				"user": "U2",
				"reaction": "seven",
				"item": {"type": "message", "channel": "C1", "ts": "1700000000.000100"},
				"event_ts": "1700000001.000000"
			}
		}`

		if code := postEvent(t, testRouter(d, fakePinger{}), body, nil); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		want := []bot.Event{{
			Type:     "reaction_added",
			User:     "U2",
			Reaction: "seven",
			Item:     bot.EventItem{Type: "message", Channel: "C1", TS: "1700000000.000100"},
		}}
		if diff := cmp.Diff(want, d.handled()); diff != "" {
			t.Errorf("dispatched events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Message Callback", func(t *testing.T) {
		d := &fakeDispatcher{}
		body := `{
			"type": "event_callback",
			"event_id": "Ev3",
			"event": {"type": "message", "subtype": "bot_message", "bot_id": "B1", "text": "hi", "ts": "1.5", "channel": "C1"}
		}`

		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
		w := httptest.NewRecorder()
		router := testRouter(d, fakePinger{})
		router.ServeHTTP(w, req)
		if err := router.Drain(context.Background()); err != nil {
			t.Fatalf("drain failed: %v", err)
		}

		want := []bot.Event{{Type: "message", Channel: "C1", Text: "hi", TS: "1.5", Subtype: "bot_message", BotID: "B1"}}
		if diff := cmp.Diff(want, d.handled()); diff != "" {
			t.Errorf("dispatched events mismatch (-want +got):\n%s", diff)
		}
		if w.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a request id header")
		}
	})

	t.Run("Dispatch Error Is Acknowledged", func(t *testing.T) {
		d := &fakeDispatcher{err: errors.New("boom")}

		if code := postEvent(t, testRouter(d, fakePinger{}), messageEvent, nil); code != http.StatusOK || len(d.handled()) != 1 {
			t.Errorf("expected an acknowledged dispatch, got %d with %d events", code, len(d.handled()))
		}
	})

	t.Run("Redelivery Is Dispatched Once", func(t *testing.T) {
		d := &fakeDispatcher{}
		router := testRouter(d, fakePinger{})

		postEvent(t, router, messageEvent, nil)
		code := postEvent(t, router, messageEvent, map[string]string{
			"X-Slack-Retry-Num":    "1",
			"X-Slack-Retry-Reason": "http_timeout",
		})

		if code != http.StatusOK || len(d.handled()) != 1 {
			t.Errorf("expected the retry to be acknowledged without a second dispatch, got %d with %d events", code, len(d.handled()))
		}
	})

	t.Run("Retry Of Unseen Event Is Dispatched", func(t *testing.T) {
		d := &fakeDispatcher{}

		code := postEvent(t, testRouter(d, fakePinger{}), messageEvent, map[string]string{"X-Slack-Retry-Num": "2"})
		if code != http.StatusOK || len(d.handled()) != 1 {
			t.Errorf("expected the retry to be dispatched, got %d with %d events", code, len(d.handled()))
		}
	})

	t.Run("Client Gone Mid Dispatch", func(t *testing.T) {
		d := &fakeDispatcher{block: make(chan struct{}), started: make(chan struct{}, 1)}
		router := testRouter(d, fakePinger{})
		srv := httptest.NewServer(router)
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/slack/events", strings.NewReader(messageEvent))
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}

		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("expected the event to be acknowledged before dispatch finished, got %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		<-d.started
		cancel()
		srv.CloseClientConnections()
		close(d.block)

		drainCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		if err := router.Drain(drainCtx); err != nil {
			t.Fatalf("failed to drain: %v", err)
		}

		if len(d.handled()) != 1 {
			t.Errorf("expected the event to be handled after the client left, got %d", len(d.handled()))
		}
		if d.ctxErr != nil {
			t.Errorf("dispatch context was cancelled: %v", d.ctxErr)
		}
	})

	t.Run("Dispatch Timeout", func(t *testing.T) {
		d := &fakeDispatcher{block: make(chan struct{})}
		h := NewEventsHandler(d, log.New(&strings.Builder{}))
		h.timeout = 20 * time.Millisecond

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(messageEvent)))
		if err := h.Drain(context.Background()); err != nil {
			t.Fatalf("drain failed: %v", err)
		}

		if w.Code != http.StatusOK || !errors.Is(d.ctxErr, context.DeadlineExceeded) {
			t.Errorf("expected a bounded dispatch, got %d with %v", w.Code, d.ctxErr)
		}
	})

	t.Run("Unsupported Event", func(t *testing.T) {
		d := &fakeDispatcher{}
		body := `{"type":"event_callback","event_id":"Ev4","event":{"type":"no_such_event","user":"U1"}}`

		if code := postEvent(t, testRouter(d, fakePinger{}), body, nil); code != http.StatusOK || len(d.handled()) != 0 {
			t.Errorf("expected an acknowledged no-op, got %d with %v", code, d.handled())
		}
	})

	t.Run("Bad Requests", func(t *testing.T) {
		d := &fakeDispatcher{}
		router := testRouter(d, fakePinger{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("{not json")))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for invalid json, got %d", w.Code)
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slack/events", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for GET, got %d", w.Code)
		}
	})
}

func TestEventIDClaims(t *testing.T) {
	h := NewEventsHandler(&fakeDispatcher{}, log.New(&strings.Builder{}))

	if !h.claim("Ev1") || h.claim("Ev1") {
		t.Error("expected an event id to be claimed once")
	}
	if !h.claim("") || !h.claim("") {
		t.Error("expected events without an id to always be dispatched")
	}

	h.seen["Ev1"] = time.Now().Add(-2 * eventIDTTL)
	if !h.claim("Ev1") {
		t.Error("expected an expired id to be claimable again")
	}
}

func TestCommandsHandler(t *testing.T) {
	tc := []struct {
		name  string
		reply bot.Reply
		want  commandResponse
	}{
		{name: "private", reply: bot.Reply{Text: "Pong!"}, want: commandResponse{ResponseType: "ephemeral", Text: "Pong!"}},
		{name: "public", reply: bot.Reply{Text: "board", Public: true}, want: commandResponse{ResponseType: "in_channel", Text: "board"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{reply: tt.reply}
			form := url.Values{
				"command":    {"/leaderboard"},
				"text":       {"--count 5 --public"},
				"user_id":    {"U1"},
				"channel_id": {"C1"},
			}

			req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			testRouter(d, fakePinger{}).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var got commandResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid response body: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}

			wantCmd := []bot.Command{{Name: "/leaderboard", Text: "--count 5 --public", UserID: "U1", ChannelID: "C1"}}
			if diff := cmp.Diff(wantCmd, d.commands); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Missing Command", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("text=hi"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		testRouter(&fakeDispatcher{}, fakePinger{}).ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestHealthAndMetrics(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		w := httptest.NewRecorder()
		testRouter(&fakeDispatcher{}, fakePinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
			t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("Database Down", func(t *testing.T) {
		w := httptest.NewRecorder()
		testRouter(&fakeDispatcher{}, fakePinger{err: errors.New("closed")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		router := testRouter(&fakeDispatcher{}, fakePinger{})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ratebot_http_request_duration_seconds") {
			t.Errorf("expected request metrics, got %d", w.Code)
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/metrics", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	logger := log.New(&strings.Builder{})

	t.Run("Request ID Is Reused", func(t *testing.T) {
		var seen string
		h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if seen != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
			t.Errorf("expected request id to be reused, got %q", seen)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		h := WithRecover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		})
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if diff := cmp.Diff([]string{"first", "second", "handler"}, order); diff != "" {
			t.Errorf("middleware order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"GET /x"}, router.Paths()); diff != "" {
			t.Errorf("paths mismatch (-want +got):\n%s", diff)
		}
	})
}
