package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentCash   = "Cash on Hand"
	PaymentGCash  = "GCash"
	PaymentWallet = "Wallet"

	FulfillmentMeetup   = "Meetup"
	FulfillmentDelivery = "Delivery"

	ChannelWallet = "Wallet"
)

var paymentMethods = map[string]bool{
	PaymentCash:   true,
	PaymentGCash:  true,
	PaymentWallet: true,
}

type Transaction struct {
	ID                 string              `db:"id" json:"id"`
	ReferenceCode      *string             `db:"reference_code" json:"reference_code"`
	BuyerID            string              `db:"buyer_id" json:"buyer_id"`
	SellerID           string              `db:"seller_id" json:"seller_id"`
	PostID             *string             `db:"post_id" json:"post_id"`
	PostTypeID         *int                `db:"post_type_id" json:"post_type_id"`
	PostType           string              `db:"post_type" json:"post_type"`
	ConversationID     *string             `db:"conversation_id" json:"conversation_id"`
	ItemTitle          *string             `db:"item_title" json:"item_title"`
	Price              decimal.NullDecimal `db:"price" json:"price"`
	PaymentMethod      *string             `db:"payment_method" json:"payment_method"`
	FulfillmentMethod  *string             `db:"fulfillment_method" json:"fulfillment_method"`
	CashAdded          decimal.NullDecimal `db:"cash_added" json:"cash_added"`
	OfferedItem        *string             `db:"offered_item" json:"offered_item"`
	ServiceFee         decimal.NullDecimal `db:"service_fee" json:"service_fee"`
	MeetupLocation     *string             `db:"meetup_location" json:"meetup_location"`
	MeetupDate         *string             `db:"meetup_date" json:"meetup_date"`
	MeetupTime         *string             `db:"meetup_time" json:"meetup_time"`
	DeliveryLocation   *string             `db:"delivery_location" json:"delivery_location"`
	DeliveryLat        *float64            `db:"delivery_lat" json:"delivery_lat"`
	DeliveryLng        *float64            `db:"delivery_lng" json:"delivery_lng"`
	DeliveryGeohash    *string             `db:"delivery_geohash" json:"delivery_geohash"`
	DeliveryFee        decimal.NullDecimal `db:"delivery_fee" json:"delivery_fee"`
	DeliveryDistanceKm decimal.NullDecimal `db:"delivery_distance_km" json:"delivery_distance_km"`
	DeliveryStatus     *string             `db:"delivery_status" json:"delivery_status"`
	RentStartDate      *time.Time          `db:"rent_start_date" json:"rent_start_date"`
	RentEndDate        *time.Time          `db:"rent_end_date" json:"rent_end_date"`
	RentDaysPaid       *int                `db:"rent_days_paid" json:"rent_days_paid"`
	Status             Status              `db:"status" json:"status"`
	PaymentChannel     *string             `db:"payment_channel" json:"payment_channel"`
	AmountPaid         decimal.NullDecimal `db:"amount_paid" json:"amount_paid"`
	Commission         decimal.NullDecimal `db:"commission" json:"commission"`
	CancelledBy        *string             `db:"cancelled_by" json:"cancelled_by"`
	PaidAt             *time.Time          `db:"paid_at" json:"paid_at"`
	CompletedAt        *time.Time          `db:"completed_at" json:"completed_at"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}

// RoleOf reports which side of the transaction userID is on.
func (t *Transaction) RoleOf(userID string) Role {
	switch userID {
	case t.BuyerID:
		return RoleBuyer
	case t.SellerID:
		return RoleSeller
	default:
		return RoleNone
	}
}

// RequiresWalletPayment is true when the buyer settles through the in-app
// wallet, so completion must wait for a Paid status.
func (t *Transaction) RequiresWalletPayment() bool {
	return t.PaymentMethod != nil && *t.PaymentMethod == PaymentWallet
}

func (t *Transaction) PaidThroughWallet() bool {
	return t.PaymentChannel != nil && *t.PaymentChannel == ChannelWallet
}

// RentDays counts the rented days, never less than one.
func (t *Transaction) RentDays() int {
	if t.RentStartDate == nil || t.RentEndDate == nil {
		return 0
	}
	days := int(t.RentEndDate.Sub(*t.RentStartDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// View is a transaction as listed for one caller.
type View struct {
	Transaction
	BuyerName  string   `db:"buyer_name" json:"buyer_name"`
	SellerName string   `db:"seller_name" json:"seller_name"`
	PostTitle  *string  `db:"post_title" json:"post_title"`
	PostImage  *string  `db:"post_image" json:"post_image"`
	Tab        Tab      `db:"-" json:"tab"`
	Role       Role     `db:"-" json:"role,omitempty"`
	Actions    []Action `db:"-" json:"actions"`
}

// CreateForm carries the fields of every transaction form; each post type
// reads the subset it needs.
type CreateForm struct {
	ConversationID     string `form:"conversation_id"`
	SellerID           string `form:"seller_id"`
	PostID             string `form:"post_id"`
	PostType           string `form:"post_type"`
	ItemTitle          string `form:"item_title"`
	Price              string `form:"price"`
	PaymentMethod      string `form:"payment_method"`
	FulfillmentMethod  string `form:"fulfillment_method"`
	MeetupLocation     string `form:"meetup_location"`
	MeetupDate         string `form:"meetup_date"`
	MeetupTime         string `form:"meetup_time"`
	DeliveryLocation   string `form:"delivery_location"`
	DeliveryLat        string `form:"delivery_lat"`
	DeliveryLng        string `form:"delivery_lng"`
	DeliveryFee        string `form:"delivery_fee"`
	DeliveryDistanceKm string `form:"delivery_distance_km"`
	RentStartDate      string `form:"rent_start_date"`
	RentEndDate        string `form:"rent_end_date"`
	OfferedItem        string `form:"offered_item"`
	CashAdded          string `form:"cash_added"`
	ServiceFee         string `form:"service_fee"`
	Items              string `form:"items"`
}

type CreateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	ReferenceCode string `json:"referenceCode,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Processing PickedUp"`
}

// Event names a lifecycle change worth telling the parties about.
type Event string

const (
	EventCreated   Event = "created"
	EventAccepted  Event = "accepted"
	EventPaid      Event = "paid"
	EventCancelled Event = "cancelled"
	EventProgress  Event = "progress"
	EventCompleted Event = "completed"
)

// Settlement is the outcome of releasing escrow to the seller.
type Settlement struct {
	TransactionID string          `json:"transaction_id"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`
	Net           decimal.Decimal `json:"net"`
}
