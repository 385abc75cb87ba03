package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/desertthunder/ratebot/internal/bot"
)

const (
	maxBodyBytes = 1 << 20

	// dispatchTimeout bounds one event's work once it is detached from the request.
	dispatchTimeout = 20 * time.Second

	// Slack retries for up to an hour; ids older than that cannot come back.
	eventIDTTL = time.Hour
)

// EventDispatcher handles Events API callbacks.
type EventDispatcher interface {
	HandleEvent(ctx context.Context, ev bot.Event) error
}

// CommandDispatcher answers slash commands.
type CommandDispatcher interface {
	HandleCommand(ctx context.Context, cmd bot.Command) bot.Reply
}

// EventsHandler serves the Slack Events API endpoint.
//
// Callbacks are acknowledged before they are dispatched, so Slack gets its 200 within its
// 3 second window no matter how long registering a track takes. Dispatch runs in a tracked
// goroutine on a context detached from the request and bounded by dispatchTimeout.
// An event_id is dispatched at most once; redeliveries of a handled id are acknowledged and dropped.
type EventsHandler struct {
	dispatcher EventDispatcher
	logger     *log.Logger
	timeout    time.Duration

	inflight sync.WaitGroup

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(dispatcher EventDispatcher, logger *log.Logger) *EventsHandler {
	return &EventsHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "events"),
		timeout:    dispatchTimeout,
		seen:       map[string]time.Time{},
	}
}

func (h *EventsHandler) Routes() []string {
	return []string{"/slack/events"}
}

// Drain waits for every dispatched event to finish, or until ctx is done.
func (h *EventsHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claim records id as handled and reports whether it was new. Events without an id are always new.
func (h *EventsHandler) claim(id string) bool {
	if id == "" {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if at, ok := h.seen[id]; ok && now.Sub(at) < eventIDTTL {
		return false
	}

	for k, at := range h.seen {
		if now.Sub(at) >= eventIDTTL {
			delete(h.seen, k)
		}
	}
	h.seen[id] = now
	return true
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	apiEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		if apiEvent.Type == "" || apiEvent.Type == "unmarshalling_error" {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		h.logger.Debug("ignoring unsupported event", "type", apiEvent.Type, "err", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch apiEvent.Type {
	case slackevents.URLVerification:
		challenge, _ := apiEvent.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if challenge == nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"challenge": challenge.Challenge})
		return
	case slackevents.CallbackEvent:
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	var eventID string
	if cb, ok := apiEvent.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	ev, ok := toBotEvent(apiEvent.InnerEvent)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	logger := h.logger.With("event_id", eventID, "type", ev.Type, "request_id", RequestID(r.Context()))

	retry := r.Header.Get("X-Slack-Retry-Num")
	if !h.claim(eventID) {
		logger.Debug("skipping redelivered event", "retry", retry, "reason", r.Header.Get("X-Slack-Retry-Reason"))
		w.WriteHeader(http.StatusOK)
		return
	}
	if retry != "" {
		logger.Info("dispatching retried event", "retry", retry, "reason", r.Header.Get("X-Slack-Retry-Reason"))
	}

	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic while handling event", "panic", p)
			}
		}()

		if err := h.dispatcher.HandleEvent(ctx, ev); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Error("event handling timed out", "timeout", h.timeout, "err", err)
				return
			}
			logger.Error("failed to handle event", "err", err)
		}
	}()
}

// toBotEvent converts the inner events the bot handles. Anything else reports false.
func toBotEvent(inner slackevents.EventsAPIInnerEvent) (bot.Event, bool) {
	switch e := inner.Data.(type) {
	case *slackevents.MessageEvent:
		return bot.Event{
			Type:    bot.EventMessage,
			User:    e.User,
			Channel: e.Channel,
			Text:    e.Text,
			TS:      e.TimeStamp,
			Subtype: e.SubType,
			BotID:   e.BotID,
		}, true
	case *slackevents.ReactionAddedEvent:
		return reactionEvent(bot.EventReactionAdded, e.User, e.Reaction, e.Item), true
	case *slackevents.ReactionRemovedEvent:
		return reactionEvent(bot.EventReactionRemoved, e.User, e.Reaction, e.Item), true
	default:
		return bot.Event{}, false
	}
}

func reactionEvent(kind, user, reaction string, item slackevents.Item) bot.Event {
	return bot.Event{
		Type:     kind,
		User:     user,
		Reaction: reaction,
		Item:     bot.EventItem{Type: item.Type, Channel: item.Channel, TS: item.Timestamp},
	}
}

// commandResponse is the immediate reply to a slash command.
type commandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// CommandsHandler serves form-encoded slash command requests.
type CommandsHandler struct {
	dispatcher CommandDispatcher
	logger     *log.Logger
}

// NewCommandsHandler creates a CommandsHandler.
func NewCommandsHandler(dispatcher CommandDispatcher, logger *log.Logger) *CommandsHandler {
	return &CommandsHandler{dispatcher: dispatcher, logger: logger.With("component", "commands")}
}

func (h *CommandsHandler) Routes() []string {
	return []string{"/slack/commands"}
}

func (h *CommandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	sc, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if sc.Command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}

	reply := h.dispatcher.HandleCommand(r.Context(), bot.Command{
		Name:      sc.Command,
		Text:      sc.Text,
		UserID:    sc.UserID,
		ChannelID: sc.ChannelID,
	})

	resp := commandResponse{ResponseType: slack.ResponseTypeEphemeral, Text: reply.Text}
	if reply.Public {
		resp.ResponseType = slack.ResponseTypeInChannel
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
