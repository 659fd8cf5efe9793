package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldcart/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a new message with a server-assigned id and timestamp and
// returns the authoritative copy.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error) {
	m := &domain.Message{
		ID:     uuid.NewString(),
		Sender: domain.Author{ID: senderID},
		Text:   text,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, text, read, sent_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, m.ID, conversationID, senderID, m.Text, m.SentAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// GetByID returns a message and the conversation it belongs to.
func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, string, error) {
	m := &domain.Message{}
	var convID, senderID string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, text, read, sent_at
		FROM messages WHERE id = ?
	`, id).Scan(&m.ID, &convID, &senderID, &m.Text, &m.Read, &m.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get message: %w", err)
	}
	m.Sender = domain.Author{ID: senderID}
	return m, convID, nil
}

// UpdateText overwrites a message's text in place.
func (r *MessageRepo) UpdateText(ctx context.Context, id, newText string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET text = ? WHERE id = ?
	`, newText, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
