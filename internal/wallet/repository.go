package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusmarket/internal/chat"
	"campusmarket/internal/db"
	"campusmarket/internal/transaction"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEscrowShortfall     = errors.New("escrow balance below released amount")
	ErrFractionalCentavo   = errors.New("amount has more than two decimal places")
)

const walletColumns = `id, user_id, current_balance, escrow_balance, currency, created_at, updated_at`

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, error)
	GetWallet(ctx context.Context, userID string) (*Wallet, error)
	AddTransaction(ctx context.Context, userID string, amount decimal.Decimal, entryType string) (*Entry, error)
	GetTransactions(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
	Pay(ctx context.Context, p Payment) error
	Release(ctx context.Context, transactionID string, commissionRate decimal.Decimal) (*transaction.Settlement, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID string) (*Wallet, error) {
	w, err := r.GetWallet(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	w = &Wallet{}
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO wallets (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		RETURNING `+walletColumns,
		uuid.NewString(), userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repository) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AddTransaction applies a signed amount to the current balance of the
// user's wallet, creating the wallet on first use.
func (r *repository) AddTransaction(ctx context.Context, userID string, amount decimal.Decimal, entryType string) (*Entry, error) {
	if !wholeCentavos(amount) {
		return nil, ErrFractionalCentavo
	}
	var entry *Entry
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		w, err := lockWallet(ctx, tx, userID)
		if errors.Is(err, ErrWalletNotFound) {
			w = &Wallet{}
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO wallets (id, user_id)
				VALUES ($1, $2)
				RETURNING `+walletColumns,
				uuid.NewString(), userID,
			).StructScan(w)
		}
		if err != nil {
			return err
		}

		newBalance := w.CurrentBalance.Add(amount)
		if newBalance.IsNegative() {
			return ErrInsufficientBalance
		}
		if err := saveBalances(ctx, tx, w.ID, newBalance, w.EscrowBalance); err != nil {
			return err
		}

		entry, err = insertEntry(ctx, tx, w.ID, nil, entryType, amount, newBalance, w.EscrowBalance)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) GetTransactions(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT wt.id, wt.wallet_id, wt.transaction_id, wt.type, wt.amount,
		       wt.balance_after, wt.escrow_after, wt.created_at
		FROM wallet_transactions wt
		JOIN wallets w ON w.id = wt.wallet_id
		WHERE w.user_id = $1
		ORDER BY wt.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Pay flips an Accepted transaction to Paid and moves the amount from the
// buyer's current balance into escrow. The status compare-and-set runs
// first, so a second payment for the same transaction finds no Accepted row
// and fails with transaction.ErrStatusConflict without touching the wallet.
func (r *repository) Pay(ctx context.Context, p Payment) error {
	if !wholeCentavos(p.Amount) {
		return ErrFractionalCentavo
	}
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var conversationID sql.NullString
		err := tx.GetContext(ctx, &conversationID, `
			UPDATE transactions
			SET status = 'Paid',
			    payment_channel = 'Wallet',
			    amount_paid = $3,
			    delivery_fee = COALESCE($4, delivery_fee),
			    rent_days_paid = COALESCE($5, rent_days_paid),
			    paid_at = NOW(),
			    updated_at = NOW()
			WHERE id = $1 AND buyer_id = $2 AND status = 'Accepted'
			RETURNING conversation_id
		`, p.TransactionID, p.BuyerID, p.Amount, p.DeliveryFee, p.RentDays)
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}

		w, err := lockWallet(ctx, tx, p.BuyerID)
		if err != nil {
			return err
		}
		if w.CurrentBalance.LessThan(p.Amount) {
			return ErrInsufficientBalance
		}

		current := w.CurrentBalance.Sub(p.Amount)
		escrow := w.EscrowBalance.Add(p.Amount)
		if err := saveBalances(ctx, tx, w.ID, current, escrow); err != nil {
			return err
		}
		if _, err := insertEntry(ctx, tx, w.ID, &p.TransactionID, EntryPayment, p.Amount.Neg(), current, escrow); err != nil {
			return err
		}

		if conversationID.Valid {
			return chat.AppendSystem(ctx, tx, conversationID.String, p.TransactionID, "Payment Received")
		}
		return nil
	})
}

type releasedRow struct {
	BuyerID        string          `db:"buyer_id"`
	SellerID       string          `db:"seller_id"`
	AmountPaid     decimal.Decimal `db:"amount_paid"`
	Commission     decimal.Decimal `db:"commission"`
	ConversationID sql.NullString  `db:"conversation_id"`
}

// Release completes a wallet-paid transaction: the buyer's escrow drops by
// the paid amount and the seller receives it minus commission.
func (r *repository) Release(ctx context.Context, transactionID string, commissionRate decimal.Decimal) (*transaction.Settlement, error) {
	var settlement *transaction.Settlement
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var row releasedRow
		err := tx.GetContext(ctx, &row, `
			UPDATE transactions
			SET status = 'Completed',
			    commission = ROUND(amount_paid * $2, 2),
			    completed_at = NOW(),
			    updated_at = NOW()
			WHERE id = $1
			  AND payment_channel = 'Wallet'
			  AND amount_paid IS NOT NULL
			  AND status IN ('Paid', 'Processing', 'PickedUp')
			RETURNING buyer_id, seller_id, amount_paid, commission, conversation_id
		`, transactionID, commissionRate)
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wallets (id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
		`, uuid.NewString(), row.SellerID); err != nil {
			return fmt.Errorf("ensure seller wallet: %w", err)
		}

		// Both wallets are locked in user_id order so concurrent releases
		// between the same pair cannot deadlock.
		var locked []Wallet
		if err := tx.SelectContext(ctx, &locked, `
			SELECT `+walletColumns+`
			FROM wallets
			WHERE user_id IN ($1, $2)
			ORDER BY user_id
			FOR UPDATE
		`, row.BuyerID, row.SellerID); err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}
		buyer, seller := pick(locked, row.BuyerID), pick(locked, row.SellerID)
		if buyer == nil || seller == nil {
			return ErrWalletNotFound
		}

		net := row.AmountPaid.Sub(row.Commission)
		buyerEscrow := buyer.EscrowBalance.Sub(row.AmountPaid)
		if buyerEscrow.IsNegative() {
			return ErrEscrowShortfall
		}
		if err := saveBalances(ctx, tx, buyer.ID, buyer.CurrentBalance, buyerEscrow); err != nil {
			return err
		}
		if _, err := insertEntry(ctx, tx, buyer.ID, &transactionID, EntryEscrowRelease, row.AmountPaid.Neg(), buyer.CurrentBalance, buyerEscrow); err != nil {
			return err
		}

		sellerBalance := seller.CurrentBalance.Add(net)
		if err := saveBalances(ctx, tx, seller.ID, sellerBalance, seller.EscrowBalance); err != nil {
			return err
		}
		if _, err := insertEntry(ctx, tx, seller.ID, &transactionID, EntrySaleProceeds, net, sellerBalance, seller.EscrowBalance); err != nil {
			return err
		}

		if row.ConversationID.Valid {
			if err := chat.AppendSystem(ctx, tx, row.ConversationID.String, transactionID, "Transaction Completed"); err != nil {
				return err
			}
		}

		settlement = &transaction.Settlement{
			TransactionID: transactionID,
			BuyerID:       row.BuyerID,
			SellerID:      row.SellerID,
			Amount:        row.AmountPaid,
			Commission:    row.Commission,
			Net:           net,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func lockWallet(ctx context.Context, tx *sqlx.Tx, userID string) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &w, nil
}

func saveBalances(ctx context.Context, tx *sqlx.Tx, walletID string, current, escrow decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET current_balance = $1, escrow_balance = $2, updated_at = NOW()
		WHERE id = $3
	`, current, escrow, walletID)
	if err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, walletID string, transactionID *string, entryType string, amount, balanceAfter, escrowAfter decimal.Decimal) (*Entry, error) {
	var e Entry
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions (id, wallet_id, transaction_id, type, amount, balance_after, escrow_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, wallet_id, transaction_id, type, amount, balance_after, escrow_after, created_at
	`, uuid.NewString(), walletID, transactionID, entryType, amount, balanceAfter, escrowAfter).StructScan(&e)
	if err != nil {
		return nil, fmt.Errorf("insert wallet entry: %w", err)
	}
	return &e, nil
}

func pick(wallets []Wallet, userID string) *Wallet {
	for i := range wallets {
		if wallets[i].UserID == userID {
			return &wallets[i]
		}
	}
	return nil
}
