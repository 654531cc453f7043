package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	plandomain "github.com/smallbiznis/mensalidade/internal/plan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateSubscriptionSchedulesFirstInstallment(t *testing.T) {
	now := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	client := clientdomain.Client{ID: 7, Name: "Ana"}
	plan := plandomain.Plan{ID: 3, Name: "Mensal", Price: decimal.RequireFromString("99.90"), Active: true}

	updated, inst, err := ActivateSubscription(client, plan, clock.Date(2024, 3, 1), 42, now)
	require.NoError(t, err)

	assert.True(t, updated.SubscriptionActive)
	require.NotNil(t, updated.PlanID)
	assert.Equal(t, plan.ID, *updated.PlanID)

	assert.Equal(t, clock.Date(2024, 3, 31), inst.DueDate)
	assert.Equal(t, 1, inst.SequenceNumber)
	assert.Equal(t, installmentdomain.StatusPending, inst.Status)
	assert.True(t, inst.IsRecurring)
	assert.True(t, inst.Amount.Equal(plan.Price))
	assert.Equal(t, client.ID, inst.ClientID)
}

func TestActivateSubscriptionIgnoresMonthLength(t *testing.T) {
	plan := plandomain.Plan{ID: 3, Price: decimal.NewFromInt(10), Active: true}

	_, inst, err := ActivateSubscription(clientdomain.Client{ID: 1}, plan, clock.Date(2024, 1, 31), 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, clock.Date(2024, 3, 1), inst.DueDate)
}

func TestActivateSubscriptionRejectsUnusablePlan(t *testing.T) {
	_, _, err := ActivateSubscription(clientdomain.Client{ID: 1}, plandomain.Plan{ID: 3, Price: decimal.NewFromInt(10)}, clock.Date(2024, 1, 1), 1, time.Now())
	assert.ErrorIs(t, err, ErrPlanInactive)

	_, _, err = ActivateSubscription(clientdomain.Client{ID: 1}, plandomain.Plan{ID: 3, Active: true}, clock.Date(2024, 1, 1), 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPrice)
}
