package movement

import (
	"stokado/internal/core/apperror"
)

// Status is the workflow state of a stock movement document.
// status only advances along the transition graph below; the transition
// methods on StockMovement are the sole mutators.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusPosted    Status = "POSTED"
	StatusCancelled Status = "CANCELLED"
	StatusClosed    Status = "CLOSED"
)

// Action is a workflow transition request.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionPost    Action = "post"
	ActionCancel  Action = "cancel"
)

// transitions maps each action to the statuses it may be applied from and
// the status it leads to.
//
//	DRAFT --submit--> SUBMITTED
//	REJECTED --submit--> SUBMITTED       (resubmission)
//	SUBMITTED --approve--> APPROVED
//	SUBMITTED --reject--> REJECTED
//	APPROVED --post--> POSTED            (terminal, ledger-mutating)
//	{DRAFT, SUBMITTED, APPROVED} --cancel--> CANCELLED (terminal)
var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionSubmit:  {from: []Status{StatusDraft, StatusRejected}, to: StatusSubmitted},
	ActionApprove: {from: []Status{StatusSubmitted}, to: StatusApproved},
	ActionReject:  {from: []Status{StatusSubmitted}, to: StatusRejected},
	ActionPost:    {from: []Status{StatusApproved}, to: StatusPosted},
	ActionCancel:  {from: []Status{StatusDraft, StatusSubmitted, StatusApproved}, to: StatusCancelled},
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusPosted || s == StatusCancelled || s == StatusClosed
}

// CanApply reports whether the action is legal from this status.
func (s Status) CanApply(a Action) bool {
	t, ok := transitions[a]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Next returns the status the action leads to, or an error when the
// transition is illegal from the current status.
func (s Status) Next(a Action) (Status, error) {
	if !s.CanApply(a) {
		return s, apperror.NewWrongState(string(a), string(s))
	}
	return transitions[a].to, nil
}
