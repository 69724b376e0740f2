package chat

import "time"

const (
	TypeUser   = "user"
	TypeSystem = "system"
)

type Conversation struct {
	ID        string    `db:"id" json:"id"`
	PostID    *string   `db:"post_id" json:"post_id"`
	BuyerID   string    `db:"buyer_id" json:"buyer_id"`
	SellerID  string    `db:"seller_id" json:"seller_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       *string   `db:"sender_id" json:"sender_id"`
	Body           string    `db:"body" json:"body"`
	Type           string    `db:"type" json:"type"`
	TransactionID  *string   `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type StartConversationRequest struct {
	PostID string `json:"post_id" binding:"required,uuid"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}
