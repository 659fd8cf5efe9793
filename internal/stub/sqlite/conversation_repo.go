package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldcart/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, name, farm_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, c.ID, c.Name, c.FarmID, c.UserID)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetByID loads one conversation with its full message sequence in server
// order. Senders are populated with full user descriptors.
func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, farm_id, user_id, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.FarmID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.text, m.read, m.sent_at, u.id, u.name, u.role, u.avatar
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		var u domain.User
		if err := rows.Scan(&m.ID, &m.Text, &m.Read, &m.SentAt, &u.ID, &u.Name, &u.Role, &u.Avatar); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = domain.Author{ID: u.ID, User: &u}
		c.Messages = append(c.Messages, m)
	}
	return c, rows.Err()
}

// ListForUser returns conversation summaries: each conversation carries only
// its most recent message, with the sender left as a bare id reference.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, farm_id, user_id, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(&c.ID, &c.Name, &c.FarmID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range convs {
		var m domain.Message
		var senderID string
		err := r.db.QueryRowContext(ctx, `
			SELECT id, text, read, sent_at, sender_id
			FROM messages
			WHERE conversation_id = ?
			ORDER BY seq DESC LIMIT 1
		`, c.ID).Scan(&m.ID, &m.Text, &m.Read, &m.SentAt, &senderID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("last message: %w", err)
		}
		m.Sender = domain.Author{ID: senderID}
		c.Messages = []domain.Message{m}
	}
	return convs, nil
}

func (r *ConversationRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}
