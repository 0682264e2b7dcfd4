package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPaymentWindow is how long a registrant has to pay after acceptance.
const DefaultPaymentWindow = 24 * time.Hour

// Trigger names an event that may move a registration along the state graph.
type Trigger string

const (
	TriggerApproveFree       Trigger = "approve_free"
	TriggerApprovePriced     Trigger = "approve_priced"
	TriggerReject            Trigger = "reject"
	TriggerWaitlist          Trigger = "waitlist"
	TriggerCheckoutCompleted Trigger = "checkout_completed"
	TriggerCheckoutExpired   Trigger = "checkout_expired"
	TriggerPaymentSucceeded  Trigger = "payment_succeeded"
	TriggerPaymentFailed     Trigger = "payment_failed"
	TriggerPaymentRetry      Trigger = "payment_retry"
	TriggerDeadlineElapsed   Trigger = "deadline_elapsed"
)

// Patch is the set of column changes a transition writes. Zero values are
// left untouched. The *IfAbsent fields are only written when the column is
// still NULL.
type Patch struct {
	Status                  Status
	PaymentStatus           PaymentStatus
	AcceptedAt              time.Time
	PaymentDeadline         time.Time
	PaidAt                  time.Time
	SessionIDIfAbsent       string
	PaymentIntentIDIfAbsent string
}

// Input carries the values a transition may stamp onto the row.
type Input struct {
	Now             time.Time
	PaymentWindow   time.Duration
	SessionID       string
	PaymentIntentID string
}

type rule struct {
	from          []Status
	to            Status
	payment       PaymentStatus
	stampAccepted bool
	stampDeadline bool
	stampPaid     bool
	recordRefs    bool
}

var awaiting = []Status{StatusAwaitingPayment}
var undecided = []Status{StatusPending, StatusWaitlisted}

var rules = map[Trigger]rule{
	TriggerApproveFree:       {from: undecided, to: StatusApproved, stampAccepted: true},
	TriggerApprovePriced:     {from: undecided, to: StatusAwaitingPayment, payment: PaymentPending, stampAccepted: true, stampDeadline: true},
	TriggerReject:            {from: undecided, to: StatusRejected},
	TriggerWaitlist:          {from: []Status{StatusPending}, to: StatusWaitlisted},
	TriggerCheckoutCompleted: {from: awaiting, to: StatusPaid, payment: PaymentCompleted, stampPaid: true, recordRefs: true},
	TriggerCheckoutExpired:   {from: awaiting, to: StatusExpired, payment: PaymentExpired},
	TriggerPaymentSucceeded:  {from: awaiting, recordRefs: true},
	TriggerPaymentFailed:     {from: awaiting, payment: PaymentFailed, recordRefs: true},
	TriggerPaymentRetry:      {from: awaiting, payment: PaymentPending},
	TriggerDeadlineElapsed:   {from: awaiting, to: StatusExpired, payment: PaymentExpired},
}

// Allowed reports whether trigger may fire from current.
func Allowed(trigger Trigger, current Status) bool {
	r, ok := rules[trigger]
	if !ok {
		return false
	}
	for _, s := range r.from {
		if s == current {
			return true
		}
	}
	return false
}

// Plan computes the patch trigger would write to a row currently in status
// current. It returns ErrPreconditionFailed when the transition is not
// defined from current.
func Plan(trigger Trigger, current Status, in Input) (Patch, error) {
	r, ok := rules[trigger]
	if !ok {
		return Patch{}, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}
	if !Allowed(trigger, current) {
		return Patch{}, fmt.Errorf("%w: %s not allowed from %s", ErrPreconditionFailed, trigger, current)
	}

	now := in.Now.UTC()
	p := Patch{Status: r.to, PaymentStatus: r.payment}
	if r.stampAccepted {
		p.AcceptedAt = now
	}
	if r.stampDeadline {
		window := in.PaymentWindow
		if window <= 0 {
			window = DefaultPaymentWindow
		}
		p.PaymentDeadline = now.Add(window)
	}
	if r.stampPaid {
		p.PaidAt = now
	}
	if r.recordRefs {
		p.SessionIDIfAbsent = in.SessionID
		p.PaymentIntentIDIfAbsent = in.PaymentIntentID
	}
	return p, nil
}

// Updater is the store primitive every transition is committed through: the
// patch is written only if the row still has status expected.
type Updater interface {
	ConditionalUpdate(ctx context.Context, id string, expected Status, patch Patch) error
}

// Apply plans trigger against current and commits it conditionally. A lost
// race (the row no longer has status current, or the trigger is not defined
// from it) is not an error: Apply reports applied=false and the caller treats
// it as someone else having already decided.
func Apply(ctx context.Context, u Updater, id string, current Status, trigger Trigger, in Input) (bool, error) {
	patch, err := Plan(trigger, current, in)
	if errors.Is(err, ErrPreconditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := u.ConditionalUpdate(ctx, id, current, patch); err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
