package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestResolveStatus(t *testing.T) {
	today := clock.Date(2024, 1, 15)

	cases := []struct {
		name   string
		status Status
		due    time.Time
		want   EffectiveStatus
	}{
		{name: "pending_past_due", status: StatusPending, due: clock.Date(2024, 1, 10), want: EffectiveOverdue},
		{name: "pending_due_today", status: StatusPending, due: today, want: EffectiveOpen},
		{name: "pending_future", status: StatusPending, due: clock.Date(2024, 2, 1), want: EffectiveOpen},
		{name: "stored_overdue_not_yet_due", status: StatusOverdue, due: clock.Date(2024, 1, 20), want: EffectiveOpen},
		{name: "stored_overdue_past_due", status: StatusOverdue, due: clock.Date(2023, 12, 1), want: EffectiveOverdue},
		{name: "paid_past_due", status: StatusPaid, due: clock.Date(2023, 1, 1), want: EffectivePaid},
		{name: "cancelled_past_due", status: StatusCancelled, due: clock.Date(2023, 1, 1), want: EffectiveCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst := Installment{Status: tc.status, DueDate: tc.due}
			assert.Equal(t, tc.want, ResolveStatus(inst, today))
			assert.Equal(t, tc.want, inst.EffectiveStatus(today))
		})
	}
}

func TestResolveStatusIgnoresClockComponent(t *testing.T) {
	inst := Installment{Status: StatusPending, DueDate: clock.Date(2024, 1, 15)}
	lateInDay := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, EffectiveOpen, ResolveStatus(inst, lateInDay))
}

func TestOverdueOnlyForUnsettledPastDue(t *testing.T) {
	today := clock.Date(2024, 6, 1)
	statuses := []Status{StatusPending, StatusPaid, StatusOverdue, StatusCancelled}

	for _, status := range statuses {
		for offset := -40; offset <= 40; offset++ {
			inst := Installment{Status: status, DueDate: clock.AddDays(today, offset)}
			got := ResolveStatus(inst, today)

			unsettled := status == StatusPending || status == StatusOverdue
			wantOverdue := unsettled && offset < 0
			assert.Equal(t, wantOverdue, got == EffectiveOverdue, "status=%s offset=%d", status, offset)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Installment{
		ClientID: 1,
		Amount:   decimal.RequireFromString("99.90"),
		DueDate:  clock.Date(2024, 3, 31),
		Status:   StatusPending,
	}
	assert.NoError(t, Validate(valid))

	negative := valid
	negative.Amount = decimal.RequireFromString("-1")
	assert.ErrorIs(t, Validate(negative), ErrInvalidAmount)

	noDue := valid
	noDue.DueDate = time.Time{}
	assert.ErrorIs(t, Validate(noDue), ErrMissingDueDate)

	noClient := valid
	noClient.ClientID = 0
	assert.ErrorIs(t, Validate(noClient), ErrInvalidClient)

	badStatus := valid
	badStatus.Status = "refunded"
	assert.ErrorIs(t, Validate(badStatus), ErrInvalidStatus)
}

func TestEffectiveStatusIsOutstanding(t *testing.T) {
	assert.True(t, EffectiveOpen.IsOutstanding())
	assert.True(t, EffectiveOverdue.IsOutstanding())
	assert.False(t, EffectivePaid.IsOutstanding())
	assert.False(t, EffectiveCancelled.IsOutstanding())
}
