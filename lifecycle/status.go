// Package lifecycle holds the registration payment state machine. Every driver
// that mutates a registration (organizer decisions, checkout, webhooks, the
// deadline sweep) plans its change here and commits it through Apply.
package lifecycle

// Status is the registration status column.
type Status string

const (
	StatusPending         Status = "pending"
	StatusWaitlisted      Status = "waitlisted"
	StatusRejected        Status = "rejected"
	StatusApproved        Status = "approved"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusExpired         Status = "expired"
)

// rank orders statuses along the state graph. A transition must strictly
// increase it or leave the status untouched.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusWaitlisted:
		return 1
	case StatusRejected, StatusApproved, StatusAwaitingPayment:
		return 2
	case StatusPaid, StatusExpired:
		return 3
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.rank() >= 0 }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusApproved, StatusPaid, StatusExpired:
		return true
	}
	return false
}

// Before reports whether s comes strictly earlier than other in the state graph.
func (s Status) Before(other Status) bool { return s.rank() < other.rank() }

// PaymentStatus is the orthogonal payment sub-state used while a registration
// is on the paid track. The zero value means payment is not relevant yet.
type PaymentStatus string

const (
	PaymentNone      PaymentStatus = ""
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
)
