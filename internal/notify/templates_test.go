package notify

import (
	"testing"

	"campusmarket/internal/transaction"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipients(msgs []message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.userID)
	}
	return out
}

func TestMessagesFor_Recipients(t *testing.T) {
	buyerCancelled := testTransaction()
	buyerCancelled.CancelledBy = &buyerCancelled.BuyerID

	sellerCancelled := testTransaction()
	sellerCancelled.CancelledBy = &sellerCancelled.SellerID

	giveaway := testTransaction()
	giveaway.PostType = "Giveaway"

	tests := []struct {
		name  string
		event transaction.Event
		tx    *transaction.Transaction
		want  []string
	}{
		{"created", transaction.EventCreated, testTransaction(), []string{"seller-1"}},
		{"accepted by seller", transaction.EventAccepted, testTransaction(), []string{"buyer-1"}},
		{"giveaway accepted by recipient", transaction.EventAccepted, giveaway, []string{"seller-1"}},
		{"paid", transaction.EventPaid, testTransaction(), []string{"seller-1"}},
		{"progress", transaction.EventProgress, testTransaction(), []string{"buyer-1"}},
		{"cancelled by buyer", transaction.EventCancelled, buyerCancelled, []string{"seller-1"}},
		{"cancelled by seller", transaction.EventCancelled, sellerCancelled, []string{"buyer-1"}},
		{"completed", transaction.EventCompleted, testTransaction(), []string{"buyer-1", "seller-1"}},
		{"unknown", transaction.Event("archived"), testTransaction(), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recipients(messagesFor(tt.event, tt.tx)))
		})
	}
}

func TestMessagesFor_CompletedShowsNetProceeds(t *testing.T) {
	tx := testTransaction()
	tx.AmountPaid = decimal.NewNullDecimal(decimal.NewFromInt(200))
	tx.Commission = decimal.NewNullDecimal(decimal.NewFromInt(10))

	msgs := messagesFor(transaction.EventCompleted, tx)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].body, "PHP 190.00")
	assert.Contains(t, msgs[1].subject, "TX-1A2B3C4D")
}

func TestRender(t *testing.T) {
	assert.Equal(t, "Hi Bea,\n\nHello\n\n- Campus Market", render("Bea", "Hello"))
}
