package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusmarket/internal/apperr"
	"campusmarket/internal/auth"
	"campusmarket/internal/logger"
	"campusmarket/internal/metrics"

	"github.com/google/uuid"
)

// PostTypeResolver maps a post type name to its id, nil when unknown.
type PostTypeResolver interface {
	ResolvePostTypeID(ctx context.Context, name string) (*int, error)
}

// EscrowReleaser completes a wallet-paid transaction by moving the buyer's
// escrow to the seller.
type EscrowReleaser interface {
	ReleaseEscrow(ctx context.Context, transactionID string) (*Settlement, error)
}

// Notifier is told about lifecycle events. Implementations must not block
// and must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event, t *Transaction)
}

type Service interface {
	Create(ctx context.Context, session auth.Session, postType string, form CreateForm) (*Transaction, error)
	Get(ctx context.Context, session auth.Session, id string) (*View, error)
	ListForUser(ctx context.Context, session auth.Session, userID string) ([]View, error)
	ListAll(ctx context.Context, limit, offset int) ([]View, error)
	Accept(ctx context.Context, session auth.Session, id string) (*View, error)
	Cancel(ctx context.Context, session auth.Session, id string) (*View, error)
	UpdateFulfillment(ctx context.Context, session auth.Session, id string, status Status) (*View, error)
	Complete(ctx context.Context, session auth.Session, id string) (*View, error)
}

type service struct {
	repo      Repository
	postTypes PostTypeResolver
	escrow    EscrowReleaser
	notifier  Notifier
}

func NewService(repo Repository, postTypes PostTypeResolver, escrow EscrowReleaser, notifier Notifier) Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &service{
		repo:      repo,
		postTypes: postTypes,
		escrow:    escrow,
		notifier:  notifier,
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event, *Transaction) {}

func NewReferenceCode(id uuid.UUID) string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func (s *service) Create(ctx context.Context, session auth.Session, postType string, form CreateForm) (*Transaction, error) {
	if session.UserID == "" {
		return nil, apperr.Unauthenticated("You must be logged in to create a transaction.")
	}

	build, ok := builders[postType]
	if !ok {
		return nil, apperr.BadRequest("Unsupported transaction type: " + postType)
	}

	typeName := strings.TrimSpace(form.PostType)
	if typeName == "" {
		typeName = postType
	}
	typeID, err := s.postTypes.ResolvePostTypeID(ctx, typeName)
	if err != nil {
		return nil, apperr.Internal("Failed to resolve post type", err)
	}

	t, items, err := build(form)
	if err != nil {
		return nil, err
	}
	if t.SellerID == session.UserID {
		return nil, apperr.Validation("You cannot transact on your own listing.")
	}

	id := uuid.New()
	ref := NewReferenceCode(id)
	t.ID = id.String()
	t.ReferenceCode = &ref
	t.BuyerID = session.UserID
	t.PostTypeID = typeID

	if err := s.repo.Create(ctx, t, items); err != nil {
		return nil, apperr.Internal("Failed to create transaction", err)
	}

	metrics.RecordTransactionCreated(postType)
	logger.Info("transaction created",
		"transaction_id", t.ID,
		"reference", ref,
		"post_type", postType,
		"buyer_id", t.BuyerID,
		"seller_id", t.SellerID,
	)
	s.notifier.Notify(ctx, EventCreated, t)

	return t, nil
}

func (s *service) load(ctx context.Context, id string) (*View, error) {
	v, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrTransactionNotFound) {
		return nil, apperr.NotFound("Transaction not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load transaction", err)
	}
	return v, nil
}

// loadAsParty loads the transaction and the caller's role in it. Callers
// outside the transaction are rejected.
func (s *service) loadAsParty(ctx context.Context, session auth.Session, id string) (*View, Role, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, RoleNone, err
	}
	role := v.RoleOf(session.UserID)
	if role == RoleNone {
		return nil, RoleNone, apperr.Forbidden("You are not part of this transaction")
	}
	return v, role, nil
}

func (s *service) Get(ctx context.Context, session auth.Session, id string) (*View, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.RoleOf(session.UserID) == RoleNone && !session.IsAdmin() {
		return nil, apperr.Forbidden("You are not part of this transaction")
	}
	decorate(v, session.UserID)
	return v, nil
}

func (s *service) ListForUser(ctx context.Context, session auth.Session, userID string) ([]View, error) {
	if userID == "" {
		userID = session.UserID
	}
	if userID != session.UserID && !session.IsAdmin() {
		return nil, apperr.Forbidden("You can only view your own transactions")
	}

	views, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load transactions", err)
	}
	for i := range views {
		decorate(&views[i], userID)
	}
	return FilterVisible(userID, views), nil
}

func (s *service) ListAll(ctx context.Context, limit, offset int) ([]View, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	views, err := s.repo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal("Failed to load transactions", err)
	}
	for i := range views {
		decorate(&views[i], "")
	}
	return views, nil
}

func (s *service) Accept(ctx context.Context, session auth.Session, id string) (*View, error) {
	v, role, err := s.loadAsParty(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if v.Status != StatusPending {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot accept a transaction that is %s", v.Status))
	}
	if !hasAction(AllowedActions(role, v.PostType, v.Status), ActionAccept) {
		return nil, apperr.Forbidden("You are not allowed to accept this transaction")
	}
	return s.transition(ctx, session, v, StatusAccepted, "Transaction Accepted", EventAccepted)
}

func (s *service) Cancel(ctx context.Context, session auth.Session, id string) (*View, error) {
	v, role, err := s.loadAsParty(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !v.Status.CanTransitionTo(StatusCancelled) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot cancel a transaction that is %s", v.Status))
	}
	if !hasAction(ActionsFor(role, &v.Transaction), ActionCancel) {
		return nil, apperr.Forbidden("You are not allowed to cancel this transaction")
	}
	return s.transition(ctx, session, v, StatusCancelled, "Transaction Cancelled", EventCancelled)
}

var fulfillmentMessages = map[Status]string{
	StatusProcessing: "Order Processing",
	StatusPickedUp:   "Item Picked Up",
}

func (s *service) UpdateFulfillment(ctx context.Context, session auth.Session, id string, status Status) (*View, error) {
	message, ok := fulfillmentMessages[status]
	if !ok {
		return nil, apperr.Validation("Status must be Processing or PickedUp")
	}
	v, role, err := s.loadAsParty(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if role != RoleSeller {
		return nil, apperr.Forbidden("Only the seller can update fulfillment")
	}
	if !v.Status.CanTransitionTo(status) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot move a transaction from %s to %s", v.Status, status))
	}
	return s.transition(ctx, session, v, status, message, EventProgress)
}

// Complete confirms receipt. Wallet payments release escrow to the seller;
// offline payments only close the transaction.
func (s *service) Complete(ctx context.Context, session auth.Session, id string) (*View, error) {
	v, role, err := s.loadAsParty(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if role != RoleBuyer {
		return nil, apperr.Forbidden("Only the buyer can confirm receipt")
	}
	if !v.Status.CanTransitionTo(StatusCompleted) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot complete a transaction that is %s", v.Status))
	}

	if v.Status == StatusAccepted && v.RequiresWalletPayment() {
		return nil, apperr.Conflict("Payment is required before completing this transaction")
	}

	if v.Status != StatusAccepted && v.PaidThroughWallet() {
		settlement, err := s.escrow.ReleaseEscrow(ctx, id)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return nil, apperr.Internal("Failed to release escrow", err)
			}
			return nil, err
		}
		metrics.RecordTransition(string(v.Status), string(StatusCompleted))
		logger.Info("escrow released",
			"transaction_id", id,
			"amount", settlement.Amount.String(),
			"commission", settlement.Commission.String(),
		)
		return s.reload(ctx, session, id, EventCompleted)
	}

	return s.transition(ctx, session, v, StatusCompleted, "Transaction Completed", EventCompleted)
}

func (s *service) transition(ctx context.Context, session auth.Session, v *View, to Status, message string, event Event) (*View, error) {
	err := s.repo.UpdateStatus(ctx, v.ID, v.Status, to, session.UserID, message)
	if errors.Is(err, ErrStatusConflict) {
		return nil, apperr.Conflict("Transaction was updated by someone else, refresh and try again")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update transaction", err)
	}

	metrics.RecordTransition(string(v.Status), string(to))
	logger.Info("transaction status changed",
		"transaction_id", v.ID,
		"from", v.Status,
		"to", to,
		"actor_id", session.UserID,
	)
	return s.reload(ctx, session, v.ID, event)
}

func (s *service) reload(ctx context.Context, session auth.Session, id string, event Event) (*View, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	decorate(v, session.UserID)
	s.notifier.Notify(ctx, event, &v.Transaction)
	return v, nil
}
