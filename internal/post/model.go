package post

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Post type names as stored in post_types.name.
const (
	TypeSale      = "Sale"
	TypeRent      = "Rent"
	TypeTrade     = "Trade"
	TypeGiveaway  = "Giveaway"
	TypePasaBuy   = "PasaBuy"
	TypeEmergency = "Emergency Lending"
)

type PostType struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Post struct {
	ID          string              `db:"id" json:"id"`
	SellerID    string              `db:"seller_id" json:"seller_id"`
	PostTypeID  *int                `db:"post_type_id" json:"post_type_id"`
	PostType    *string             `db:"post_type" json:"post_type"`
	Title       string              `db:"title" json:"title"`
	Description *string             `db:"description" json:"description,omitempty"`
	Price       decimal.NullDecimal `db:"price" json:"price"`
	ImageURL    *string             `db:"image_url" json:"image_url,omitempty"`
	Status      string              `db:"status" json:"status"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	Items       []PasaBuyItem       `db:"-" json:"items,omitempty"`
}

type PasaBuyItem struct {
	ID            string          `db:"id" json:"id"`
	PostID        string          `db:"post_id" json:"post_id"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	ProductName   string          `db:"product_name" json:"product_name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// ItemInput is one entry of a submitted PasaBuy item list.
type ItemInput struct {
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
}

type CreatePostRequest struct {
	PostType    string              `json:"post_type" binding:"required"`
	Title       string              `json:"title" binding:"required,min=2,max=200"`
	Description string              `json:"description" binding:"omitempty,max=2000"`
	Price       decimal.NullDecimal `json:"price"`
	ImageURL    string              `json:"image_url" binding:"omitempty,url"`
	Items       json.RawMessage     `json:"items"`
}
