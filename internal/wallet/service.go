package wallet

import (
	"context"
	"errors"
	"fmt"

	"campusmarket/internal/apperr"
	"campusmarket/internal/logger"
	"campusmarket/internal/metrics"
	"campusmarket/internal/realtime"
	"campusmarket/internal/transaction"

	"github.com/shopspring/decimal"
)

// TransactionReader loads the transaction a payment refers to.
type TransactionReader interface {
	GetByID(ctx context.Context, id string) (*transaction.View, error)
}

// Events carries wallet change notifications between API instances.
type Events interface {
	Publish(ctx context.Context, userID string, ev realtime.Event) error
	Subscribe(ctx context.Context, userID string) (<-chan realtime.Event, error)
}

type Service interface {
	Summary(ctx context.Context, userID string, limit, offset int) (*Summary, error)
	CashIn(ctx context.Context, userID string, req CashRequest) (*Entry, error)
	CashOut(ctx context.Context, userID string, req CashRequest) (*Entry, error)
	Pay(ctx context.Context, userID string, req PayRequest) error
	ReleaseEscrow(ctx context.Context, transactionID string) (*transaction.Settlement, error)
	Subscribe(ctx context.Context, userID string) (<-chan realtime.Event, error)
}

type service struct {
	repo           Repository
	transactions   TransactionReader
	events         Events
	notifier       transaction.Notifier
	commissionRate decimal.Decimal
}

func NewService(repo Repository, transactions TransactionReader, events Events, notifier transaction.Notifier, commissionRate decimal.Decimal) Service {
	return &service{
		repo:           repo,
		transactions:   transactions,
		events:         events,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

// Validate reports the request-shape failures that come before any session
// or data checks.
func (r PayRequest) Validate() error {
	if r.TransactionID == "" || !r.Amount.Valid {
		return apperr.BadRequest("Missing transactionId or amount")
	}
	if !r.Amount.Decimal.IsPositive() {
		return apperr.BadRequest("Amount must be greater than zero")
	}
	if !wholeCentavos(r.Amount.Decimal) {
		return apperr.BadRequest("Amount cannot have more than two decimal places")
	}
	if r.DeliveryFee.Valid && r.DeliveryFee.Decimal.IsNegative() {
		return apperr.BadRequest("Delivery fee cannot be negative")
	}
	if r.DeliveryFee.Valid && !wholeCentavos(r.DeliveryFee.Decimal) {
		return apperr.BadRequest("Delivery fee cannot have more than two decimal places")
	}
	if r.RentDays != nil && *r.RentDays < 1 {
		return apperr.BadRequest("Rent days must be at least 1")
	}
	return nil
}

// wholeCentavos reports whether d fits the two-place money columns without
// rounding.
func wholeCentavos(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// amountDue is the least a wallet payment must cover: the agreed price, times
// the rented days for rentals. Transactions without a price have no floor.
func amountDue(t *transaction.Transaction) decimal.Decimal {
	if !t.Price.Valid {
		return decimal.Zero
	}
	if days := t.RentDays(); days > 0 {
		return t.Price.Decimal.Mul(decimal.NewFromInt(int64(days)))
	}
	return t.Price.Decimal
}

func validateCash(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("Amount must be greater than zero")
	}
	if !wholeCentavos(amount) {
		return apperr.Validation("Amount cannot have more than two decimal places")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, userID string, limit, offset int) (*Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	w, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load wallet", err)
	}
	entries, err := s.repo.GetTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("Failed to load wallet history", err)
	}

	return &Summary{
		Balance:      w.CurrentBalance,
		Escrow:       w.EscrowBalance,
		Currency:     w.Currency,
		Transactions: entries,
	}, nil
}

func (s *service) CashIn(ctx context.Context, userID string, req CashRequest) (*Entry, error) {
	if err := validateCash(req.Amount); err != nil {
		return nil, err
	}
	return s.applyCash(ctx, userID, req.Amount, EntryCashIn, req.Channel)
}

func (s *service) CashOut(ctx context.Context, userID string, req CashRequest) (*Entry, error) {
	if err := validateCash(req.Amount); err != nil {
		return nil, err
	}
	return s.applyCash(ctx, userID, req.Amount.Neg(), EntryCashOut, req.Channel)
}

func (s *service) applyCash(ctx context.Context, userID string, amount decimal.Decimal, entryType, channel string) (*Entry, error) {
	entry, err := s.repo.AddTransaction(ctx, userID, amount, entryType)
	if errors.Is(err, ErrInsufficientBalance) {
		return nil, apperr.InsufficientFunds("Insufficient wallet balance")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update wallet", err)
	}

	metrics.RecordWalletOperation(entryType)
	logger.Info("wallet updated",
		"user_id", userID,
		"type", entryType,
		"channel", channel,
		"amount", amount.String(),
		"balance_after", entry.BalanceAfter.String(),
	)
	s.publish(ctx, userID, realtime.Event{Table: realtime.TableWalletTransactions, Op: realtime.OpInsert})
	return entry, nil
}

// Pay settles an Accepted transaction from the buyer's wallet. The balance
// check here gives the caller a precise error; the repository repeats it
// under the row lock.
func (s *service) Pay(ctx context.Context, userID string, req PayRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if userID == "" {
		return apperr.Unauthenticated("You must be logged in to pay.")
	}

	v, err := s.transactions.GetByID(ctx, req.TransactionID)
	if errors.Is(err, transaction.ErrTransactionNotFound) {
		return apperr.NotFound("Transaction not found")
	}
	if err != nil {
		return apperr.Internal("Failed to load transaction", err)
	}
	if v.BuyerID != userID {
		return apperr.Forbidden("Only the buyer can pay for this transaction")
	}
	if req.Amount.Decimal.LessThan(amountDue(&v.Transaction)) {
		return apperr.BadRequest("Amount does not cover the agreed price")
	}
	if days := v.RentDays(); req.RentDays != nil && days > 0 && *req.RentDays != days {
		return apperr.BadRequest(fmt.Sprintf("Rent days must match the rental period of %d days", days))
	}

	w, err := s.repo.GetWallet(ctx, userID)
	if errors.Is(err, ErrWalletNotFound) {
		return apperr.NotFound("Wallet not found")
	}
	if err != nil {
		return apperr.Internal("Failed to load wallet", err)
	}
	amount := req.Amount.Decimal
	if w.CurrentBalance.LessThan(amount) {
		metrics.RecordPayment("insufficient_funds")
		return apperr.InsufficientFunds("Insufficient wallet balance")
	}
	if v.Status != transaction.StatusAccepted {
		metrics.RecordPayment("conflict")
		return apperr.Conflict("Only accepted transactions can be paid")
	}

	err = s.repo.Pay(ctx, Payment{
		TransactionID: req.TransactionID,
		BuyerID:       userID,
		Amount:        amount,
		DeliveryFee:   req.DeliveryFee,
		RentDays:      req.RentDays,
	})
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		metrics.RecordPayment("insufficient_funds")
		return apperr.InsufficientFunds("Insufficient wallet balance")
	case errors.Is(err, transaction.ErrStatusConflict):
		metrics.RecordPayment("conflict")
		return apperr.Conflict("Transaction is no longer awaiting payment")
	case errors.Is(err, ErrWalletNotFound):
		return apperr.NotFound("Wallet not found")
	case err != nil:
		metrics.RecordPayment("error")
		return apperr.Internal("Failed to record payment", err)
	}

	metrics.RecordPayment("success")
	metrics.RecordTransition(string(transaction.StatusAccepted), string(transaction.StatusPaid))
	metrics.RecordWalletOperation(EntryPayment)
	logger.Info("payment recorded",
		"transaction_id", req.TransactionID,
		"buyer_id", userID,
		"amount", amount.String(),
	)

	s.publish(ctx, userID, realtime.Event{
		Table:         realtime.TableWalletTransactions,
		Op:            realtime.OpInsert,
		TransactionID: req.TransactionID,
	})
	if paid, err := s.transactions.GetByID(ctx, req.TransactionID); err == nil {
		s.notify(ctx, transaction.EventPaid, &paid.Transaction)
	}
	return nil
}

func (s *service) ReleaseEscrow(ctx context.Context, transactionID string) (*transaction.Settlement, error) {
	settlement, err := s.repo.Release(ctx, transactionID, s.commissionRate)
	if errors.Is(err, transaction.ErrStatusConflict) {
		return nil, apperr.Conflict("Transaction is not awaiting completion")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to release escrow", err)
	}

	metrics.RecordWalletOperation(EntryEscrowRelease)
	metrics.RecordWalletOperation(EntrySaleProceeds)
	for _, userID := range []string{settlement.BuyerID, settlement.SellerID} {
		s.publish(ctx, userID, realtime.Event{
			Table:         realtime.TableWalletTransactions,
			Op:            realtime.OpInsert,
			TransactionID: transactionID,
		})
	}
	return settlement, nil
}

func (s *service) Subscribe(ctx context.Context, userID string) (<-chan realtime.Event, error) {
	ch, err := s.events.Subscribe(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to subscribe to wallet updates", err)
	}
	return ch, nil
}

// publish is best effort: the balance change is already committed.
func (s *service) publish(ctx context.Context, userID string, ev realtime.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, userID, ev); err != nil {
		logger.Warn("wallet event not published", "user_id", userID, "error", err)
	}
}

func (s *service) notify(ctx context.Context, event transaction.Event, t *transaction.Transaction) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event, t)
	}
}
