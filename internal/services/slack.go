// Slack Web API client
//
// Method reference: https://api.slack.com/methods
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/desertthunder/ratebot/internal/shared"
	"github.com/desertthunder/ratebot/internal/telemetry"
)

// DisplayName returns the first non-empty of profile display name, real name and handle.
func DisplayName(u *slack.User) string {
	for _, name := range []string{u.Profile.DisplayName, u.Profile.RealName, u.RealName, u.Name} {
		if name != "" {
			return name
		}
	}
	return "Unknown User"
}

// SlackService calls the Slack Web API with a bot token.
type SlackService struct {
	client  *slack.Client
	baseURL string
}

// NewSlackService creates a client authenticated with botToken. An empty baseURL uses the public API.
func NewSlackService(botToken, baseURL string) (*SlackService, error) {
	if botToken == "" {
		return nil, fmt.Errorf("%w: missing slack bot token", shared.ErrMissingCredentials)
	}

	// slack-go joins method names directly onto the endpoint
	baseURL = strings.TrimSuffix(baseURL, "/") + "/"
	if baseURL == "/" {
		baseURL = slack.APIURL
	}

	return &SlackService{
		client:  slack.New(botToken, slack.OptionAPIURL(baseURL)),
		baseURL: baseURL,
	}, nil
}

func (s *SlackService) Name() string {
	return "Slack"
}

// SlackError is a Web API reply with "ok": false.
type SlackError struct {
	Method string
	Code   string
}

func (e *SlackError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

func (e *SlackError) Unwrap() error {
	return shared.ErrAPIRequest
}

// check records the outcome of a Web API call and maps slack-go errors onto the shared sentinels.
func check(method string, err error) error {
	if err == nil {
		telemetry.RecordExternal("slack", "ok")
		return nil
	}
	telemetry.RecordExternal("slack", "error")

	var (
		apiErr    slack.SlackErrorResponse
		statusErr slack.StatusCodeError
		limitErr  *slack.RateLimitedError
	)
	switch {
	case errors.As(err, &apiErr):
		return &SlackError{Method: method, Code: apiErr.Err}
	case errors.As(err, &statusErr):
		return fmt.Errorf("%s: %w", method, statusError("slack", statusErr.Code, shared.ErrAPIRequest))
	case errors.As(err, &limitErr):
		return fmt.Errorf("%w: slack %s: retry after %s", shared.ErrServiceUnavailable, method, limitErr.RetryAfter)
	default:
		return fmt.Errorf("%w: slack %s: %w", shared.ErrServiceUnavailable, method, err)
	}
}

func messageOptions(text string) []slack.MsgOption {
	return []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	}
}

// PostEphemeral sends text visible only to user in channel.
func (s *SlackService) PostEphemeral(ctx context.Context, channel, user, text string) error {
	_, err := s.client.PostEphemeralContext(ctx, channel, user, messageOptions(text)...)
	return check("chat.postEphemeral", err)
}

// PostMessage sends text to channel.
func (s *SlackService) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, channel, messageOptions(text)...)
	return check("chat.postMessage", err)
}

// Permalink returns the permanent link of the message at ts in channel.
func (s *SlackService) Permalink(ctx context.Context, channel, ts string) (string, error) {
	link, err := s.client.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channel, Ts: ts})
	if err := check("chat.getPermalink", err); err != nil {
		return "", err
	}
	return link, nil
}

// MessageText returns the text of the message at ts in channel.
func (s *SlackService) MessageText(ctx context.Context, channel, ts string) (string, error) {
	resp, err := s.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channel,
		Latest:    ts,
		Limit:     1,
		Inclusive: true,
	})
	if err := check("conversations.history", err); err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("%w: no message at %s in %s", shared.ErrAPIRequest, ts, channel)
	}
	return resp.Messages[0].Text, nil
}

// User returns the profile of user.
func (s *SlackService) User(ctx context.Context, user string) (*slack.User, error) {
	u, err := s.client.GetUserInfoContext(ctx, user)
	if err := check("users.info", err); err != nil {
		var se *SlackError
		if errors.As(err, &se) && se.Code == "user_not_found" {
			return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
		}
		return nil, err
	}
	return u, nil
}

// UserName returns user's display name.
func (s *SlackService) UserName(ctx context.Context, user string) (string, error) {
	u, err := s.User(ctx, user)
	if err != nil {
		return "", err
	}
	return DisplayName(u), nil
}

// UserExists reports whether user is a known, active member of the workspace.
func (s *SlackService) UserExists(ctx context.Context, user string) (bool, error) {
	u, err := s.User(ctx, user)
	if errors.Is(err, shared.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !u.Deleted, nil
}
