package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EntryCashIn        = "cash_in"
	EntryCashOut       = "cash_out"
	EntryPayment       = "payment"
	EntryEscrowRelease = "escrow_release"
	EntrySaleProceeds  = "sale_proceeds"

	DefaultCurrency = "PHP"
)

type Wallet struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"user_id"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"current_balance"`
	EscrowBalance  decimal.Decimal `db:"escrow_balance" json:"escrow_balance"`
	Currency       string          `db:"currency" json:"currency"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Entry is one line of wallet history. Amount is signed: debits are negative.
type Entry struct {
	ID            string          `db:"id" json:"id"`
	WalletID      string          `db:"wallet_id" json:"wallet_id"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id"`
	Type          string          `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	EscrowAfter   decimal.Decimal `db:"escrow_after" json:"escrow_after"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	Escrow       decimal.Decimal `json:"escrow"`
	Currency     string          `json:"currency"`
	Transactions []Entry         `json:"transactions"`
}

type PayRequest struct {
	TransactionID string              `json:"transactionId"`
	Amount        decimal.NullDecimal `json:"amount"`
	DeliveryFee   decimal.NullDecimal `json:"deliveryFee"`
	RentDays      *int                `json:"rentDays"`
}

// Payment is a validated PayRequest made by buyerID.
type Payment struct {
	TransactionID string
	BuyerID       string
	Amount        decimal.Decimal
	DeliveryFee   decimal.NullDecimal
	RentDays      *int
}

type CashRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Channel string          `json:"channel" binding:"required,oneof=GCash Counter"`
}
