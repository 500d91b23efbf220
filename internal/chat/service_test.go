package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu       sync.Mutex
	messages []*Message
	nextID   int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{nextID: 1}
}

func (f *fakeRepository) CreateMessage(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = f.nextID
	f.nextID++
	msg.CreatedAt = time.Now()
	clone := *msg
	f.messages = append(f.messages, &clone)
	return nil
}

func (f *fakeRepository) ListMessages(_ context.Context, userA, userB int64, limit int, beforeID int64) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Message{}
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := f.messages[i]
		if beforeID != 0 && m.ID >= beforeID {
			continue
		}
		pair := (m.SenderID == userA && m.RecipientID == userB) ||
			(m.SenderID == userB && m.RecipientID == userA)
		if pair {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRepository) MarkConversationRead(_ context.Context, recipientID, senderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRepository) ListConversations(_ context.Context, userID int64) ([]*Conversation, error) {
	return []*Conversation{}, nil
}

// fakeChecker reports a fixed set of connected pairs
type fakeChecker struct {
	mu    sync.Mutex
	pairs map[[2]int64]bool
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{pairs: make(map[[2]int64]bool)}
}

func (c *fakeChecker) connect(a, b int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs[[2]int64{a, b}] = true
}

func (c *fakeChecker) disconnect(a, b int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pairs, [2]int64{a, b})
}

func (c *fakeChecker) IsConnected(_ context.Context, userA, userB int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairs[[2]int64{userA, userB}] || c.pairs[[2]int64{userB, userA}], nil
}

func TestSendMessageRequiresMatch(t *testing.T) {
	checker := newFakeChecker()
	svc := NewService(newFakeRepository(), checker, 2000)

	_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "hey"})
	assert.ErrorIs(t, err, ErrNotConnected)

	checker.connect(1, 2)
	msg, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "hey"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.SenderID)
	assert.Equal(t, int64(2), msg.RecipientID)
	assert.Equal(t, "hey", msg.Content)
	assert.NotZero(t, msg.ID)
}

func TestSendMessageStopsAfterUnmatch(t *testing.T) {
	checker := newFakeChecker()
	svc := NewService(newFakeRepository(), checker, 2000)
	checker.connect(1, 2)

	_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "hi"})
	require.NoError(t, err)

	checker.disconnect(1, 2)

	_, err = svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "still there?"})
	assert.ErrorIs(t, err, ErrNotConnected)

	// History stays readable after the match ends
	messages, err := svc.GetMessages(context.Background(), 2, 1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestSendMessageValidation(t *testing.T) {
	checker := newFakeChecker()
	checker.connect(1, 2)
	svc := NewService(newFakeRepository(), checker, 10)

	_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 1, Content: "hi"})
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: strings.Repeat("x", 11)})
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestMarkRead(t *testing.T) {
	checker := newFakeChecker()
	checker.connect(1, 2)
	repo := newFakeRepository()
	svc := NewService(repo, checker, 2000)

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "msg"})
		require.NoError(t, err)
	}

	n, err := svc.MarkRead(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Already read
	n, err = svc.MarkRead(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetMessagesPagination(t *testing.T) {
	checker := newFakeChecker()
	checker.connect(1, 2)
	svc := NewService(newFakeRepository(), checker, 2000)

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{RecipientID: 2, Content: "msg"})
		require.NoError(t, err)
	}

	page, err := svc.GetMessages(context.Background(), 1, 2, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].ID)
	assert.Equal(t, int64(4), page[1].ID)

	older, err := svc.GetMessages(context.Background(), 1, 2, 2, page[1].ID)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, int64(3), older[0].ID)
	assert.Equal(t, int64(2), older[1].ID)
}
