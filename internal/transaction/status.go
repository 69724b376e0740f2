package transaction

import "fmt"

type Status string

const (
	StatusPending    Status = "Pending"
	StatusAccepted   Status = "Accepted"
	StatusPaid       Status = "Paid"
	StatusPickedUp   Status = "PickedUp"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusPaid, StatusCompleted, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusPickedUp, StatusCompleted},
	StatusProcessing: {StatusPickedUp, StatusCompleted},
	StatusPickedUp:   {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ParseStatus accepts only the exact, case-sensitive status names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Tab is the bucket a transaction is listed under.
type Tab string

const (
	TabActive    Tab = "active"
	TabCompleted Tab = "completed"
	TabCancelled Tab = "cancelled"
)

// MapDBStatusToTab buckets a raw status value. Unrecognised values are
// treated as active.
func MapDBStatusToTab(status string) Tab {
	switch Status(status) {
	case StatusCompleted:
		return TabCompleted
	case StatusCancelled:
		return TabCancelled
	default:
		return TabActive
	}
}
