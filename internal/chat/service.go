package chat

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotConnected   = errors.New("users are not matched")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content is too long")
	ErrSelfMessage    = errors.New("cannot message yourself")
)

// ConnectionChecker answers whether two users hold an active match. The
// matching service satisfies this.
type ConnectionChecker interface {
	IsConnected(ctx context.Context, userA, userB int64) (bool, error)
}

// Service defines the chat service interface
type Service interface {
	SendMessage(ctx context.Context, senderID int64, req *SendMessageRequest) (*Message, error)
	GetMessages(ctx context.Context, userID, otherID int64, limit int, beforeID int64) ([]*Message, error)
	MarkRead(ctx context.Context, userID, otherID int64) (int64, error)
	GetConversations(ctx context.Context, userID int64) ([]*Conversation, error)
}

type service struct {
	repo      Repository
	checker   ConnectionChecker
	maxLength int
}

func NewService(repo Repository, checker ConnectionChecker, maxLength int) Service {
	return &service{repo: repo, checker: checker, maxLength: maxLength}
}

// SendMessage persists a message. Delivery is only allowed between users who
// currently hold an active match.
func (s *service) SendMessage(ctx context.Context, senderID int64, req *SendMessageRequest) (*Message, error) {
	if senderID == req.RecipientID {
		return nil, ErrSelfMessage
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > s.maxLength {
		return nil, ErrMessageTooLong
	}

	connected, err := s.checker.IsConnected(ctx, senderID, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	msg := &Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     content,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages returns the viewer's thread with the other user. History stays
// readable after an unmatch; only sending is gated on the connection.
func (s *service) GetMessages(ctx context.Context, userID, otherID int64, limit int, beforeID int64) ([]*Message, error) {
	return s.repo.ListMessages(ctx, userID, otherID, limit, beforeID)
}

func (s *service) MarkRead(ctx context.Context, userID, otherID int64) (int64, error) {
	return s.repo.MarkConversationRead(ctx, userID, otherID)
}

func (s *service) GetConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}
