package transaction

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"campusmarket/internal/chat"
	"campusmarket/internal/db"
	"campusmarket/internal/post"

	"github.com/jmoiron/sqlx"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrStatusConflict means the row was no longer in the expected status
	// when the update ran.
	ErrStatusConflict = errors.New("transaction status changed concurrently")
)

var columnList = []string{
	"id", "reference_code", "buyer_id", "seller_id", "post_id", "post_type_id", "post_type",
	"conversation_id", "item_title", "price", "payment_method", "fulfillment_method",
	"cash_added", "offered_item", "service_fee", "meetup_location", "meetup_date", "meetup_time",
	"delivery_location", "delivery_lat", "delivery_lng", "delivery_geohash", "delivery_fee",
	"delivery_distance_km", "delivery_status", "rent_start_date", "rent_end_date", "rent_days_paid",
	"status", "payment_channel", "amount_paid", "commission", "cancelled_by", "paid_at",
	"completed_at", "created_at", "updated_at",
}

var viewSelect = `
	SELECT t.` + strings.Join(columnList, ", t.") + `,
	       b.name AS buyer_name, s.name AS seller_name,
	       p.title AS post_title, p.image_url AS post_image
	FROM transactions t
	JOIN users b ON b.id = t.buyer_id
	JOIN users s ON s.id = t.seller_id
	LEFT JOIN posts p ON p.id = t.post_id
`

type Repository interface {
	Create(ctx context.Context, t *Transaction, items []post.ItemInput) error
	GetByID(ctx context.Context, id string) (*View, error)
	ListForUser(ctx context.Context, userID string) ([]View, error)
	ListAll(ctx context.Context, limit, offset int) ([]View, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, actorID, message string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create stores the transaction, its PasaBuy items and the opening system
// message in one database transaction.
func (r *repository) Create(ctx context.Context, t *Transaction, items []post.ItemInput) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO transactions (
				id, reference_code, buyer_id, seller_id, post_id, post_type_id, post_type,
				conversation_id, item_title, price, payment_method, fulfillment_method,
				cash_added, offered_item, service_fee, meetup_location, meetup_date, meetup_time,
				delivery_location, delivery_lat, delivery_lng, delivery_geohash, delivery_fee,
				delivery_distance_km, delivery_status, rent_start_date, rent_end_date, status
			) VALUES (
				:id, :reference_code, :buyer_id, :seller_id, :post_id, :post_type_id, :post_type,
				:conversation_id, :item_title, :price, :payment_method, :fulfillment_method,
				:cash_added, :offered_item, :service_fee, :meetup_location, :meetup_date, :meetup_time,
				:delivery_location, :delivery_lat, :delivery_lng, :delivery_geohash, :delivery_fee,
				:delivery_distance_km, :delivery_status, :rent_start_date, :rent_end_date, :status
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
			return err
		}

		if len(items) > 0 && t.PostID != nil {
			if _, err := post.InsertItems(ctx, tx, *t.PostID, &t.ID, items); err != nil {
				return err
			}
		}

		if t.ConversationID != nil {
			return chat.AppendSystem(ctx, tx, *t.ConversationID, t.ID, "Transaction Created")
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*View, error) {
	var v View
	err := r.db.GetContext(ctx, &v, viewSelect+` WHERE t.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) ListForUser(ctx context.Context, userID string) ([]View, error) {
	views := []View{}
	err := r.db.SelectContext(ctx, &views,
		viewSelect+` WHERE t.buyer_id = $1 OR t.seller_id = $1 ORDER BY t.created_at DESC`, userID)
	return views, err
}

func (r *repository) ListAll(ctx context.Context, limit, offset int) ([]View, error) {
	views := []View{}
	err := r.db.SelectContext(ctx, &views,
		viewSelect+` ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return views, err
}

// UpdateStatus moves the transaction from one status to another with a
// compare-and-set and records message in the conversation. A row that is no
// longer in from yields ErrStatusConflict.
func (r *repository) UpdateStatus(ctx context.Context, id string, from, to Status, actorID, message string) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var conversationID sql.NullString
		err := tx.GetContext(ctx, &conversationID, `
			UPDATE transactions
			SET status = $3,
			    cancelled_by = CASE WHEN $3 = 'Cancelled' THEN $4::uuid ELSE cancelled_by END,
			    completed_at = CASE WHEN $3 = 'Completed' THEN NOW() ELSE completed_at END,
			    updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING conversation_id
		`, id, string(from), string(to), optional(actorID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStatusConflict
		}
		if err != nil {
			return err
		}

		if conversationID.Valid {
			return chat.AppendSystem(ctx, tx, conversationID.String, id, message)
		}
		return nil
	})
}
