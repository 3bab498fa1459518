package models

// SaleStatus is the lifecycle status of a sale record.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusApproved  SaleStatus = "approved"
	SaleStatusRejected  SaleStatus = "rejected"
	SaleStatusCompleted SaleStatus = "completed"
)

func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusPending, SaleStatusApproved, SaleStatusRejected, SaleStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusRejected || s == SaleStatusCompleted
}

// IsActive reports whether the record blocks a new sale of its credential.
func (s SaleStatus) IsActive() bool {
	return s == SaleStatusPending || s == SaleStatusApproved
}

// CanTransitionTo is the whole transition table:
// PENDING -> APPROVED | REJECTED, APPROVED -> COMPLETED.
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusPending:
		return target == SaleStatusApproved || target == SaleStatusRejected
	case SaleStatusApproved:
		return target == SaleStatusCompleted
	}
	return false
}

func (s SaleStatus) String() string {
	return string(s)
}

// Decision is an admin's review outcome.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status is the sale status a decision leads to.
func (d Decision) Status() SaleStatus {
	if d == DecisionApprove {
		return SaleStatusApproved
	}
	return SaleStatusRejected
}
