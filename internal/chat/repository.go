package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMessageNotFound = errors.New("message not found")

// Repository is the durable message store. Messages get their id and
// timestamp here, at persist time, and are immutable afterwards as far as the
// live path is concerned (edits and deletes only happen through the REST
// surface).
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateMessage(ctx context.Context, sender, recipient, text string) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO messages (id, sender_id, recipient_id, text, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, msg.ID, msg.Sender, msg.Recipient, msg.Text, msg.CreatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

// Conversation returns every message exchanged between the two users, oldest
// first. Direction doesn't matter: (a,b) and (b,a) give the same result.
func (r *Repository) Conversation(ctx context.Context, userA, userB string) ([]Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, text, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Recipient, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *Repository) GetMessage(ctx context.Context, id string) (*Message, error) {
	msg := &Message{}
	query := `SELECT id, sender_id, recipient_id, text, created_at FROM messages WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&msg.ID, &msg.Sender, &msg.Recipient, &msg.Text, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *Repository) UpdateMessageText(ctx context.Context, id, text string) (*Message, error) {
	msg := &Message{}
	query := `UPDATE messages SET text = $1 WHERE id = $2
	          RETURNING id, sender_id, recipient_id, text, created_at`

	err := r.db.QueryRowContext(ctx, query, text, id).Scan(&msg.ID, &msg.Sender, &msg.Recipient, &msg.Text, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *Repository) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMessageNotFound
	}
	return nil
}
