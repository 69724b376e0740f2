package wallet_test

import (
	"context"
	"os"
	"testing"

	"campusmarket/internal/auth"
	"campusmarket/internal/db"
	"campusmarket/internal/transaction"
	"campusmarket/internal/user"
	"campusmarket/internal/wallet"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	database, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to test database: %v", err)
	}
	require.NoError(t, db.RunMigrations(database, "../../migrations"))
	t.Cleanup(func() { database.Close() })

	for _, table := range []string{"messages", "wallet_transactions", "pasabuy_items", "transactions", "conversations", "posts", "wallets", "users"} {
		_, err := database.Exec("DELETE FROM " + table)
		require.NoError(t, err, "Failed to clean table "+table)
	}
	return database
}

func createUser(t *testing.T, database *sqlx.DB, email string) string {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	u, err := user.NewRepository(database).Create(context.Background(), email, email, hash, "", auth.RoleMember)
	require.NoError(t, err)
	return u.ID
}

func balances(t *testing.T, repo wallet.Repository, userID string) (decimal.Decimal, decimal.Decimal) {
	w, err := repo.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.CurrentBalance, w.EscrowBalance
}

func TestPayAndRelease_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	buyerID := createUser(t, database, "buyer@up.edu.ph")
	sellerID := createUser(t, database, "seller@up.edu.ph")

	walletRepo := wallet.NewRepository(database)
	txRepo := transaction.NewRepository(database)

	// Registration already opened both wallets.
	current, escrow := balances(t, walletRepo, sellerID)
	require.True(t, current.IsZero())
	require.True(t, escrow.IsZero())

	_, err := walletRepo.AddTransaction(ctx, buyerID, decimal.NewFromInt(500), wallet.EntryCashIn)
	require.NoError(t, err)

	method := transaction.PaymentWallet
	title := "Casio fx-991ES"
	tx := &transaction.Transaction{
		ID:            uuid.NewString(),
		BuyerID:       buyerID,
		SellerID:      sellerID,
		PostType:      "Sale",
		ItemTitle:     &title,
		Price:         decimal.NewNullDecimal(decimal.NewFromInt(200)),
		PaymentMethod: &method,
		Status:        transaction.StatusPending,
	}
	require.NoError(t, txRepo.Create(ctx, tx, nil))

	payment := wallet.Payment{TransactionID: tx.ID, BuyerID: buyerID, Amount: decimal.NewFromInt(200)}

	// Paying before acceptance loses the compare-and-set.
	require.ErrorIs(t, walletRepo.Pay(ctx, payment), transaction.ErrStatusConflict)

	require.NoError(t, txRepo.UpdateStatus(ctx, tx.ID, transaction.StatusPending, transaction.StatusAccepted, sellerID, "Transaction Accepted"))
	require.NoError(t, walletRepo.Pay(ctx, payment))

	current, escrow = balances(t, walletRepo, buyerID)
	require.True(t, current.Equal(decimal.NewFromInt(300)), current.String())
	require.True(t, escrow.Equal(decimal.NewFromInt(200)), escrow.String())

	// A second payment for the same transaction must not debit again.
	require.ErrorIs(t, walletRepo.Pay(ctx, payment), transaction.ErrStatusConflict)
	current, _ = balances(t, walletRepo, buyerID)
	require.True(t, current.Equal(decimal.NewFromInt(300)))

	settlement, err := walletRepo.Release(ctx, tx.ID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)
	require.True(t, settlement.Net.Equal(decimal.NewFromInt(190)))

	_, escrow = balances(t, walletRepo, buyerID)
	require.True(t, escrow.IsZero())
	sellerCurrent, _ := balances(t, walletRepo, sellerID)
	require.True(t, sellerCurrent.Equal(decimal.NewFromInt(190)))

	v, err := txRepo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, transaction.StatusCompleted, v.Status)

	history, err := walletRepo.GetTransactions(ctx, buyerID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestCashOutNeverOverdraws_Integration(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	userID := createUser(t, database, "poor@up.edu.ph")
	repo := wallet.NewRepository(database)

	_, err := repo.AddTransaction(ctx, userID, decimal.NewFromInt(-50), wallet.EntryCashOut)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}
