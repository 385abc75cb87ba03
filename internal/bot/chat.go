package bot

import "context"

// Chat is the subset of the Slack Web API the dispatcher calls.
type Chat interface {
	PostEphemeral(ctx context.Context, channel, user, text string) error
	PostMessage(ctx context.Context, channel, text string) error
	Permalink(ctx context.Context, channel, ts string) (string, error)
	MessageText(ctx context.Context, channel, ts string) (string, error)
	UserName(ctx context.Context, user string) (string, error)
	UserExists(ctx context.Context, user string) (bool, error)
}

// Event types the dispatcher handles. Anything else is ignored.
const (
	EventMessage         = "message"
	EventReactionAdded   = "reaction_added"
	EventReactionRemoved = "reaction_removed"
)

// Event is the inner event of an Events API callback.
//
// Message events fill Channel, Text and TS; reaction events fill Reaction and Item.
type Event struct {
	Type     string    `json:"type"`
	User     string    `json:"user"`
	Channel  string    `json:"channel,omitempty"`
	Text     string    `json:"text,omitempty"`
	TS       string    `json:"ts,omitempty"`
	Subtype  string    `json:"subtype,omitempty"`
	BotID    string    `json:"bot_id,omitempty"`
	Reaction string    `json:"reaction,omitempty"`
	Item     EventItem `json:"item"`
}

// EventItem is the message a reaction was added to or removed from.
type EventItem struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// Command is an invoked slash command.
type Command struct {
	Name      string // with or without the leading slash
	Text      string
	UserID    string
	ChannelID string
}

// Reply is the answer to a slash command. Public replies are shown to the whole channel.
type Reply struct {
	Text   string
	Public bool
}
