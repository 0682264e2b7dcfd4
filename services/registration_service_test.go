package services

import (
	"context"
	"testing"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/payments"
	"tournament-registration/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() RegistrationInput {
	return RegistrationInput{
		FirstName: " Camille ",
		LastName:  "Martin",
		Email:     "camille@example.com",
		TeamName:  "Les Smashs",
	}
}

func TestRegistration_CreatePending(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)

	reg, err := f.regs.Create(context.Background(), tournament.ID, registrant, validInput())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)
	assert.Equal(t, "Camille", reg.FirstName)

	got := f.reload(t, reg.ID)
	assert.Equal(t, registrant, got.UserID)
	assert.Nil(t, got.PaymentDeadline)
}

func TestRegistration_CreateValidation(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)

	in := validInput()
	in.Email = "not-an-email"
	_, err := f.regs.Create(context.Background(), tournament.ID, registrant, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = validInput()
	in.LastName = "  "
	_, err = f.regs.Create(context.Background(), tournament.ID, registrant, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.regs.Create(context.Background(), "missing", registrant, validInput())
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestRegistration_ApprovePricedOpensPaymentWindow(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)
	reg := testutil.SeedRegistration(t, f.db, tournament.ID, registrant)

	got, err := f.regs.Decide(context.Background(), reg.ID, organizer, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAwaitingPayment, got.Status)
	assert.Equal(t, lifecycle.PaymentPending, got.PaymentStatus)
	require.NotNil(t, got.AcceptedAt)
	require.NotNil(t, got.PaymentDeadline)
	assert.WithinDuration(t, t0, *got.AcceptedAt, time.Second)
	assert.WithinDuration(t, t0.Add(24*time.Hour), *got.PaymentDeadline, time.Second)
	assert.Equal(t, []Notification{NotifyAccepted}, f.notifier.kinds())

	_, err = f.regs.Decide(context.Background(), reg.ID, organizer, DecisionReject)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestRegistration_ApproveFreeAccepts(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 0)
	reg := testutil.SeedRegistration(t, f.db, tournament.ID, registrant)

	got, err := f.regs.Decide(context.Background(), reg.ID, organizer, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, got.Status)
	assert.Nil(t, got.PaymentDeadline)
}

func TestRegistration_WaitlistThenApprove(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)
	reg := testutil.SeedRegistration(t, f.db, tournament.ID, registrant)
	ctx := context.Background()

	got, err := f.regs.Decide(ctx, reg.ID, organizer, DecisionWaitlist)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusWaitlisted, got.Status)

	_, err = f.regs.Decide(ctx, reg.ID, organizer, DecisionWaitlist)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	f.clock.Advance(3 * time.Hour)
	got, err = f.regs.Decide(ctx, reg.ID, organizer, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAwaitingPayment, got.Status)
	assert.WithinDuration(t, t0.Add(27*time.Hour), *got.PaymentDeadline, time.Second)
}

func TestRegistration_DecideGuards(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)
	reg := testutil.SeedRegistration(t, f.db, tournament.ID, registrant)
	ctx := context.Background()

	_, err := f.regs.Decide(ctx, reg.ID, registrant, DecisionApprove)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.regs.Decide(ctx, reg.ID, organizer, "maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.regs.Decide(ctx, "missing", organizer, DecisionApprove)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	assert.Equal(t, lifecycle.StatusPending, f.reload(t, reg.ID).Status)
}

func TestRegistration_ListIsOrganizerOnly(t *testing.T) {
	f := newFixture(t)
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)
	testutil.SeedRegistration(t, f.db, tournament.ID, "u-1")
	testutil.SeedRegistration(t, f.db, tournament.ID, "u-2")

	regs, err := f.regs.List(context.Background(), tournament.ID, organizer)
	require.NoError(t, err)
	assert.Len(t, regs, 2)

	_, err = f.regs.List(context.Background(), tournament.ID, "u-1")
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
}

func TestRegistration_PaymentSummary(t *testing.T) {
	f := newFixture(t)
	reg := f.awaiting(t)
	ctx := context.Background()

	f.clock.Advance(20 * time.Hour)
	summary, err := f.regs.PaymentSummary(ctx, reg.ID, registrant)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAwaitingPayment, summary.Status)
	assert.Equal(t, int64((4 * time.Hour).Seconds()), summary.RemainingSeconds)

	_, err = f.regs.PaymentSummary(ctx, reg.ID, "someone-else")
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	// Reading past the deadline does not expire the registration.
	f.clock.Advance(5 * time.Hour)
	summary, err = f.regs.PaymentSummary(ctx, reg.ID, registrant)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAwaitingPayment, summary.Status)
	assert.Zero(t, summary.RemainingSeconds)

	_, err = f.deliver(t, "evt_1", payments.EventCheckoutCompleted, testutil.CheckoutSessionObject("cs_1", reg.ID, "pi_1"))
	require.NoError(t, err)
	summary, err = f.regs.PaymentSummary(ctx, reg.ID, registrant)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPaid, summary.Status)
	assert.NotNil(t, summary.PaidAt)
	require.Len(t, summary.Events, 1)
	assert.Equal(t, string(payments.EventCheckoutCompleted), summary.Events[0].Kind)
}
