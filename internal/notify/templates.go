package notify

import (
	"fmt"

	"campusmarket/internal/post"
	"campusmarket/internal/transaction"
)

type message struct {
	userID  string
	subject string
	body    string
}

// messagesFor lists who hears about event and what they are told.
func messagesFor(event transaction.Event, t *transaction.Transaction) []message {
	item := itemName(t)
	ref := reference(t)

	switch event {
	case transaction.EventCreated:
		return []message{{
			userID:  t.SellerID,
			subject: fmt.Sprintf("New %s request - %s", t.PostType, ref),
			body:    fmt.Sprintf("You have a new %s request for %s.\nOpen the conversation to accept or decline it.", t.PostType, item),
		}}
	case transaction.EventAccepted:
		// The recipient accepts a Giveaway; the seller accepts everything else.
		if t.PostType == post.TypeGiveaway {
			return []message{{
				userID:  t.SellerID,
				subject: "Giveaway accepted - " + ref,
				body:    fmt.Sprintf("The recipient accepted your giveaway of %s.", item),
			}}
		}
		return []message{{
			userID:  t.BuyerID,
			subject: "Transaction accepted - " + ref,
			body:    fmt.Sprintf("Your transaction for %s was accepted.%s", item, nextStepForBuyer(t)),
		}}
	case transaction.EventPaid:
		return []message{{
			userID:  t.SellerID,
			subject: "Payment received - " + ref,
			body:    fmt.Sprintf("The buyer paid %s for %s. The amount is held in escrow until they confirm receipt.", amount(t), item),
		}}
	case transaction.EventProgress:
		return []message{{
			userID:  t.BuyerID,
			subject: fmt.Sprintf("Order update: %s - %s", t.Status, ref),
			body:    fmt.Sprintf("Your order for %s is now %s.", item, t.Status),
		}}
	case transaction.EventCancelled:
		cancelledBy := ""
		if t.CancelledBy != nil {
			cancelledBy = *t.CancelledBy
		}
		return []message{{
			userID:  counterparty(t, cancelledBy),
			subject: "Transaction cancelled - " + ref,
			body:    fmt.Sprintf("The transaction for %s was cancelled.", item),
		}}
	case transaction.EventCompleted:
		return []message{
			{
				userID:  t.BuyerID,
				subject: "Transaction completed - " + ref,
				body:    fmt.Sprintf("Thanks for confirming receipt of %s.", item),
			},
			{
				userID:  t.SellerID,
				subject: "Transaction completed - " + ref,
				body:    fmt.Sprintf("The buyer confirmed receipt of %s.%s", item, proceeds(t)),
			},
		}
	default:
		return nil
	}
}

func render(name, body string) string {
	return fmt.Sprintf("Hi %s,\n\n%s\n\n- Campus Market", name, body)
}

func counterparty(t *transaction.Transaction, actorID string) string {
	if actorID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

func nextStepForBuyer(t *transaction.Transaction) string {
	if t.RequiresWalletPayment() {
		return "\nYou can now pay from your wallet."
	}
	return ""
}

func proceeds(t *transaction.Transaction) string {
	if !t.AmountPaid.Valid {
		return ""
	}
	net := t.AmountPaid.Decimal
	if t.Commission.Valid {
		net = net.Sub(t.Commission.Decimal)
	}
	return fmt.Sprintf("\nPHP %s has been added to your wallet.", net.StringFixed(2))
}

func amount(t *transaction.Transaction) string {
	if t.AmountPaid.Valid {
		return "PHP " + t.AmountPaid.Decimal.StringFixed(2)
	}
	if t.Price.Valid {
		return "PHP " + t.Price.Decimal.StringFixed(2)
	}
	return "the agreed amount"
}

func itemName(t *transaction.Transaction) string {
	if t.ItemTitle != nil && *t.ItemTitle != "" {
		return *t.ItemTitle
	}
	return "the listed item"
}

func reference(t *transaction.Transaction) string {
	if t.ReferenceCode != nil {
		return *t.ReferenceCode
	}
	return t.ID
}
