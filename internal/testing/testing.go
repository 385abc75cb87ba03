// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// Post is a message sent through [MockChat].
type Post struct {
	Channel   string
	User      string // recipient of an ephemeral message
	Text      string
	Ephemeral bool
}

// MockChat is a test double for the bot's chat client.
//
// Permalinks and Messages are keyed by message ts, Users by user id. Err, when set, is returned by every call.
type MockChat struct {
	mu         sync.Mutex
	Posts      []Post
	Permalinks map[string]string
	Messages   map[string]string
	Users      map[string]string
	Err        error
}

// NewMockChat creates an empty MockChat.
func NewMockChat() *MockChat {
	return &MockChat{
		Permalinks: map[string]string{},
		Messages:   map[string]string{},
		Users:      map[string]string{},
	}
}

func (m *MockChat) PostEphemeral(ctx context.Context, channel, user, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Posts = append(m.Posts, Post{Channel: channel, User: user, Text: text, Ephemeral: true})
	return nil
}

func (m *MockChat) PostMessage(ctx context.Context, channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Posts = append(m.Posts, Post{Channel: channel, Text: text})
	return nil
}

func (m *MockChat) Permalink(ctx context.Context, channel, ts string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	link, ok := m.Permalinks[ts]
	if !ok {
		return "", fmt.Errorf("%w: no permalink for %s", shared.ErrAPIRequest, ts)
	}
	return link, nil
}

func (m *MockChat) MessageText(ctx context.Context, channel, ts string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	text, ok := m.Messages[ts]
	if !ok {
		return "", fmt.Errorf("%w: no message at %s", shared.ErrAPIRequest, ts)
	}
	return text, nil
}

func (m *MockChat) UserName(ctx context.Context, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	name, ok := m.Users[user]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}
	return name, nil
}

func (m *MockChat) UserExists(ctx context.Context, user string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Users[user]
	return ok, nil
}

// Sent returns a copy of every post so far.
func (m *MockChat) Sent() []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Post(nil), m.Posts...)
}

// Last returns the most recent post, or the zero Post.
func (m *MockChat) Last() Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Posts) == 0 {
		return Post{}
	}
	return m.Posts[len(m.Posts)-1]
}

// MockProvider is a test double for the track metadata provider.
type MockProvider struct {
	mu     sync.Mutex
	Tracks map[string]models.TrackDetails
	Err    error
	Calls  []string
}

// NewMockProvider creates a provider serving tracks.
func NewMockProvider(tracks ...models.TrackDetails) *MockProvider {
	m := &MockProvider{Tracks: map[string]models.TrackDetails{}}
	for _, t := range tracks {
		m.Tracks[t.ID] = t
	}
	return m
}

func (m *MockProvider) TrackDetails(ctx context.Context, id string) (*models.TrackDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, id)
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return &t, nil
}

func (m *MockProvider) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// NewTestDB opens a migrated in-memory database closed at test cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
