package post

import (
	"context"
	"database/sql"
	"errors"

	"campusmarket/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrPostNotFound = errors.New("post not found")

type Repository interface {
	ListPostTypes(ctx context.Context) ([]PostType, error)
	ResolvePostTypeID(ctx context.Context, name string) (*int, error)
	Create(ctx context.Context, p *Post, items []ItemInput) error
	GetByID(ctx context.Context, id string) (*Post, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListPostTypes(ctx context.Context) ([]PostType, error) {
	var types []PostType
	err := r.db.SelectContext(ctx, &types, `SELECT id, name FROM post_types ORDER BY id`)
	return types, err
}

// ResolvePostTypeID returns nil without error when name is not a known type.
func (r *repository) ResolvePostTypeID(ctx context.Context, name string) (*int, error) {
	var id int
	err := r.db.GetContext(ctx, &id, `SELECT id FROM post_types WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *repository) Create(ctx context.Context, p *Post, items []ItemInput) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO posts (id, seller_id, post_type_id, title, description, price, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING status, created_at
		`, p.ID, p.SellerID, p.PostTypeID, p.Title, p.Description, p.Price, p.ImageURL).Scan(&p.Status, &p.CreatedAt)
		if err != nil {
			return err
		}

		created, err := InsertItems(ctx, tx, p.ID, nil, items)
		if err != nil {
			return err
		}
		p.Items = created
		return nil
	})
}

// InsertItems writes a PasaBuy item batch inside tx, optionally linking every
// row to a transaction.
func InsertItems(ctx context.Context, tx sqlx.ExtContext, postID string, transactionID *string, items []ItemInput) ([]PasaBuyItem, error) {
	created := make([]PasaBuyItem, 0, len(items))
	for _, in := range items {
		item := PasaBuyItem{
			ID:            uuid.NewString(),
			PostID:        postID,
			TransactionID: transactionID,
			ProductName:   in.ProductName,
			Price:         in.Price,
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pasabuy_items (id, post_id, transaction_id, product_name, price)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.PostID, item.TransactionID, item.ProductName, item.Price)
		if err != nil {
			return nil, err
		}
		created = append(created, item)
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT p.id, p.seller_id, p.post_type_id, pt.name AS post_type, p.title,
		       p.description, p.price, p.image_url, p.status, p.created_at
		FROM posts p
		LEFT JOIN post_types pt ON pt.id = p.post_type_id
		WHERE p.id = $1
	`

	var p Post
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &p.Items, `
		SELECT id, post_id, transaction_id, product_name, price, created_at
		FROM pasabuy_items
		WHERE post_id = $1 AND transaction_id IS NULL
		ORDER BY created_at
	`, id)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
