package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/dbtest"
	"github.com/smallbiznis/mensalidade/internal/plan/domain"
	"github.com/smallbiznis/mensalidade/internal/plan/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	return New(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreatePlan(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	plan, err := svc.Create(ctx, domain.CreatePlanRequest{Name: "Mensal", Price: "99.90"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBillingCycle, plan.BillingCycle)
	assert.True(t, plan.Active)

	got, err := svc.GetByID(ctx, plan.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("99.90")))
}

func TestCreatePlanRejectsNonPositivePrice(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, price := range []string{"0", "-10", "", "dez"} {
		_, err := svc.Create(ctx, domain.CreatePlanRequest{Name: "Plano", Price: price})
		assert.ErrorIs(t, err, domain.ErrInvalidPrice, "price %q", price)
	}

	_, err := svc.Create(ctx, domain.CreatePlanRequest{Name: " ", Price: "10"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestDeactivateHidesFromActiveList(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	basic, err := svc.Create(ctx, domain.CreatePlanRequest{Name: "Básico", Price: "49.90"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreatePlanRequest{Name: "Premium", Price: "149.90", BillingCycle: "Mensal"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, basic.ID.String()))
	assert.ErrorIs(t, svc.Deactivate(ctx, "42"), domain.ErrNotFound)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Premium", active[0].Name)
	assert.Equal(t, "mensal", active[0].BillingCycle)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
