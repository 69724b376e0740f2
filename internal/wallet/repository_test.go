package wallet

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"campusmarket/internal/transaction"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	walletCols = []string{"id", "user_id", "current_balance", "escrow_balance", "currency", "created_at", "updated_at"}
	entryCols  = []string{"id", "wallet_id", "transaction_id", "type", "amount", "balance_after", "escrow_after", "created_at"}
)

func setupWalletMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

func walletRow(id, userID, current, escrow string) *sqlmock.Rows {
	return sqlmock.NewRows(walletCols).AddRow(id, userID, current, escrow, "PHP", time.Now(), time.Now())
}

func entryRow(walletID string, txID interface{}, entryType, amount, balance, escrow string) *sqlmock.Rows {
	return sqlmock.NewRows(entryCols).AddRow("entry-1", walletID, txID, entryType, amount, balance, escrow, time.Now())
}

func TestGetOrCreateWallet_WhenNotExists(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id)")).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnRows(walletRow("wallet-1", "user-1", "0", "0"))

	w, err := repo.GetOrCreateWallet(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "wallet-1", w.ID)
	assert.True(t, w.CurrentBalance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWallet_NotFound(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetWallet(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestAddTransaction_CashIn(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1 FOR UPDATE")).
		WithArgs("user-1").
		WillReturnRows(walletRow("wallet-1", "user-1", "100.00", "20.00"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET current_balance = $1, escrow_balance = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs("350", "20", "wallet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(sqlmock.AnyArg(), "wallet-1", nil, EntryCashIn, "250", "350", "20").
		WillReturnRows(entryRow("wallet-1", nil, EntryCashIn, "250.00", "350.00", "20.00"))
	mock.ExpectCommit()

	entry, err := repo.AddTransaction(context.Background(), "user-1", decimal.NewFromInt(250), EntryCashIn)
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(350)))
	assert.Nil(t, entry.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddTransaction_CreatesWalletOnFirstUse(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("user-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (id, user_id)")).
		WithArgs(sqlmock.AnyArg(), "user-2").
		WillReturnRows(walletRow("wallet-2", "user-2", "0", "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET current_balance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(entryRow("wallet-2", nil, EntryCashIn, "100", "100", "0"))
	mock.ExpectCommit()

	_, err := repo.AddTransaction(context.Background(), "user-2", decimal.NewFromInt(100), EntryCashIn)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddTransaction_InsufficientBalance(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("user-1").
		WillReturnRows(walletRow("wallet-1", "user-1", "40.00", "0"))
	mock.ExpectRollback()

	_, err := repo.AddTransaction(context.Background(), "user-1", decimal.NewFromInt(-50), EntryCashOut)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddTransaction_RejectsFractionsOfACentavo(t *testing.T) {
	repo, mock := setupWalletMock(t)

	_, err := repo.AddTransaction(context.Background(), "user-1", decimal.RequireFromString("-0.004"), EntryCashOut)
	assert.ErrorIs(t, err, ErrFractionalCentavo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPay_RejectsFractionsOfACentavo(t *testing.T) {
	repo, mock := setupWalletMock(t)

	err := repo.Pay(context.Background(), Payment{TransactionID: "tx-1", BuyerID: "buyer-1", Amount: decimal.RequireFromString("0.005")})
	assert.ErrorIs(t, err, ErrFractionalCentavo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactions(t *testing.T) {
	repo, mock := setupWalletMock(t)

	rows := sqlmock.NewRows(entryCols).
		AddRow("e2", "wallet-1", "tx-1", EntryPayment, "-150.00", "50.00", "150.00", time.Now()).
		AddRow("e1", "wallet-1", nil, EntryCashIn, "200.00", "200.00", "0", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_transactions wt JOIN wallets w ON w.id = wt.wallet_id WHERE w.user_id = $1 ORDER BY wt.created_at DESC")).
		WithArgs("user-1", 50, 0).
		WillReturnRows(rows)

	entries, err := repo.GetTransactions(context.Background(), "user-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryPayment, entries[0].Type)
	assert.True(t, entries[0].Amount.IsNegative())
	require.NotNil(t, entries[0].TransactionID)
	assert.Equal(t, "tx-1", *entries[0].TransactionID)
}

func payment() Payment {
	return Payment{
		TransactionID: "tx-1",
		BuyerID:       "buyer-1",
		Amount:        decimal.NewFromInt(150),
	}
}

func TestPay_MovesBalanceIntoEscrow(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Paid', payment_channel = 'Wallet'")).
		WithArgs("tx-1", "buyer-1", "150", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}).AddRow("conv-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1 FOR UPDATE")).
		WithArgs("buyer-1").
		WillReturnRows(walletRow("wallet-1", "buyer-1", "200.00", "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET current_balance = $1, escrow_balance = $2")).
		WithArgs("50", "150", "wallet-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(sqlmock.AnyArg(), "wallet-1", sqlmock.AnyArg(), EntryPayment, "-150", "50", "150").
		WillReturnRows(entryRow("wallet-1", "tx-1", EntryPayment, "-150", "50", "150"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(sqlmock.AnyArg(), "conv-1", "Payment Received", "tx-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Pay(context.Background(), payment()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPay_StoresDeliveryFeeAndRentDays(t *testing.T) {
	repo, mock := setupWalletMock(t)

	days := 3
	p := payment()
	p.DeliveryFee = decimal.NewNullDecimal(decimal.NewFromInt(60))
	p.RentDays = &days

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Paid'")).
		WithArgs("tx-1", "buyer-1", "150", "60", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(walletRow("wallet-1", "buyer-1", "150.00", "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnRows(entryRow("wallet-1", "tx-1", EntryPayment, "-150", "0", "150"))
	mock.ExpectCommit()

	require.NoError(t, repo.Pay(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPay_NotAcceptedIsConflict(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Paid'")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Pay(context.Background(), payment())
	assert.ErrorIs(t, err, transaction.ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPay_InsufficientBalanceRollsBack(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Paid'")).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}).AddRow("conv-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(walletRow("wallet-1", "buyer-1", "149.99", "0"))
	mock.ExpectRollback()

	err := repo.Pay(context.Background(), payment())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPay_MissingWallet(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Paid'")).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}).AddRow("conv-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Pay(context.Background(), payment())
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func releasedRows(amount, commission string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"buyer_id", "seller_id", "amount_paid", "commission", "conversation_id"}).
		AddRow("buyer-1", "seller-1", amount, commission, "conv-1")
}

func TestRelease_PaysSellerMinusCommission(t *testing.T) {
	repo, mock := setupWalletMock(t)
	rate := decimal.RequireFromString("0.05")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Completed', commission = ROUND(amount_paid * $2, 2)")).
		WithArgs("tx-1", "0.05").
		WillReturnRows(releasedRows("200.00", "10.00"))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "seller-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id IN ($1, $2) ORDER BY user_id FOR UPDATE")).
		WithArgs("buyer-1", "seller-1").
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow("wallet-b", "buyer-1", "0", "200.00", "PHP", time.Now(), time.Now()).
			AddRow("wallet-s", "seller-1", "30.00", "0", "PHP", time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET current_balance")).
		WithArgs("0", "0", "wallet-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(sqlmock.AnyArg(), "wallet-b", sqlmock.AnyArg(), EntryEscrowRelease, "-200", "0", "0").
		WillReturnRows(entryRow("wallet-b", "tx-1", EntryEscrowRelease, "-200", "0", "0"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET current_balance")).
		WithArgs("220", "0", "wallet-s").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(sqlmock.AnyArg(), "wallet-s", sqlmock.AnyArg(), EntrySaleProceeds, "190", "220", "0").
		WillReturnRows(entryRow("wallet-s", "tx-1", EntrySaleProceeds, "190", "220", "0"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(sqlmock.AnyArg(), "conv-1", "Transaction Completed", "tx-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s, err := repo.Release(context.Background(), "tx-1", rate)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", s.SellerID)
	assert.True(t, s.Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, s.Commission.Equal(decimal.NewFromInt(10)))
	assert.True(t, s.Net.Equal(decimal.NewFromInt(190)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_NotReleasable(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Completed'")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), "tx-1", decimal.Zero)
	assert.ErrorIs(t, err, transaction.ErrStatusConflict)
}

func TestRelease_EscrowShortfall(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET status = 'Completed'")).
		WillReturnRows(releasedRows("200.00", "10.00"))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow("wallet-b", "buyer-1", "0", "50.00", "PHP", time.Now(), time.Now()).
			AddRow("wallet-s", "seller-1", "0", "0", "PHP", time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), "tx-1", decimal.Zero)
	assert.ErrorIs(t, err, ErrEscrowShortfall)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_DatabaseError(t *testing.T) {
	repo, mock := setupWalletMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Release(context.Background(), "tx-1", decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark completed")
}
