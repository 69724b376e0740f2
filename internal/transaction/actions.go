package transaction

import "campusmarket/internal/post"

// Role is the caller's side of a transaction.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleNone   Role = ""
)

type Action string

const (
	ActionAccept       Action = "Accept"
	ActionCancel       Action = "Cancel"
	ActionPay          Action = "Pay"
	ActionUpdateStatus Action = "UpdateStatus"
	ActionComplete     Action = "Complete"
)

// AllowedActions returns the accept/cancel actions offered on a Pending
// transaction. For giveaways the recipient accepts since the lister already
// picked them; for everything else the seller commits to fulfilling.
func AllowedActions(role Role, postType string, status Status) []Action {
	if status != StatusPending || role == RoleNone {
		return nil
	}
	if postType == post.TypeGiveaway && role == RoleBuyer {
		return []Action{ActionAccept, ActionCancel}
	}
	if postType != post.TypeGiveaway && role == RoleSeller {
		return []Action{ActionAccept, ActionCancel}
	}
	return []Action{ActionCancel}
}

// ActionsFor extends AllowedActions with the lifecycle steps that follow
// acceptance: paying, fulfillment progress and completion. Either party may
// still withdraw an Accepted transaction, since no money has moved yet; once
// Paid, escrow holds the buyer's funds and cancelling is no longer offered.
func ActionsFor(role Role, t *Transaction) []Action {
	actions := AllowedActions(role, t.PostType, t.Status)
	if role == RoleNone {
		return actions
	}

	switch t.Status {
	case StatusAccepted:
		actions = append(actions, ActionCancel)
		if role == RoleBuyer {
			if t.RequiresWalletPayment() {
				actions = append(actions, ActionPay)
			} else {
				actions = append(actions, ActionComplete)
			}
		}
	case StatusPaid, StatusProcessing:
		if role == RoleSeller {
			actions = append(actions, ActionUpdateStatus)
		} else {
			actions = append(actions, ActionComplete)
		}
	case StatusPickedUp:
		if role == RoleBuyer {
			actions = append(actions, ActionComplete)
		}
	}
	return actions
}

func hasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
