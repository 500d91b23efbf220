package chat

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines the chat storage interface
type Repository interface {
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, userA, userB int64, limit int, beforeID int64) ([]*Message, error)
	MarkConversationRead(ctx context.Context, recipientID, senderID int64) (int64, error)
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (sender_id, recipient_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Content).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns one page of the thread, newest first. beforeID = 0
// starts from the newest message.
func (r *postgresRepository) ListMessages(ctx context.Context, userA, userB int64, limit int, beforeID int64) ([]*Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, is_read, created_at
		FROM messages
		WHERE ((sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1))
		  AND ($3 = 0 OR id < $3)
		ORDER BY id DESC
		LIMIT $4`

	messages := []*Message{}
	if err := r.db.SelectContext(ctx, &messages, query, userA, userB, beforeID, limit); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *postgresRepository) MarkConversationRead(ctx context.Context, recipientID, senderID int64) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE recipient_id = $1 AND sender_id = $2 AND is_read = FALSE`

	result, err := r.db.ExecContext(ctx, query, recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return result.RowsAffected()
}

// ListConversations aggregates the latest message and unread count per
// counterpart, most recently active first.
func (r *postgresRepository) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	query := `
		SELECT
			p.user_id AS other_user_id,
			p.username AS other_username,
			last.content AS last_message,
			last.created_at AS last_message_at,
			COALESCE(unread.count, 0) AS unread_count
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS other_id,
			       MAX(id) AS last_id
			FROM messages
			WHERE sender_id = $1 OR recipient_id = $1
			GROUP BY other_id
		) threads
		JOIN messages last ON last.id = threads.last_id
		JOIN profiles p ON p.user_id = threads.other_id
		LEFT JOIN (
			SELECT sender_id, COUNT(*) AS count
			FROM messages
			WHERE recipient_id = $1 AND is_read = FALSE
			GROUP BY sender_id
		) unread ON unread.sender_id = threads.other_id
		ORDER BY last.created_at DESC`

	conversations := []*Conversation{}
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}
