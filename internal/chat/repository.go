package chat

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrOwnListing           = errors.New("buyer owns the listing")
)

type Repository interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	FindOrCreateConversation(ctx context.Context, postID, buyerID string) (*Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error)
	SendMessage(ctx context.Context, conversationID, senderID, body string) (*Message, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// AppendSystem writes a system message inside the caller's transaction so it
// commits or rolls back together with the change it records.
func AppendSystem(ctx context.Context, tx sqlx.ExecerContext, conversationID, transactionID, body string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, type, transaction_id)
		VALUES ($1, $2, NULL, $3, 'system', $4)
	`, uuid.NewString(), conversationID, body, transactionID)
	return err
}

func (r *repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT id, post_id, buyer_id, seller_id, created_at
		FROM conversations
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repository) FindOrCreateConversation(ctx context.Context, postID, buyerID string) (*Conversation, error) {
	var sellerID string
	err := r.db.GetContext(ctx, &sellerID, `SELECT seller_id FROM posts WHERE id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if sellerID == buyerID {
		return nil, ErrOwnListing
	}

	var conv Conversation
	err = r.db.GetContext(ctx, &conv, `
		SELECT id, post_id, buyer_id, seller_id, created_at
		FROM conversations
		WHERE post_id = $1 AND buyer_id = $2
	`, postID, buyerID)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (id, post_id, buyer_id, seller_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, post_id, buyer_id, seller_id, created_at
	`, uuid.NewString(), postID, buyerID, sellerID)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	messages := []Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT id, conversation_id, sender_id, body, type, transaction_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return messages, err
}

func (r *repository) SendMessage(ctx context.Context, conversationID, senderID, body string) (*Message, error) {
	var msg Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages (id, conversation_id, sender_id, body, type)
		VALUES ($1, $2, $3, $4, 'user')
		RETURNING id, conversation_id, sender_id, body, type, transaction_id, created_at
	`, uuid.NewString(), conversationID, senderID, body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
