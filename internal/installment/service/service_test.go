package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	clientrepository "github.com/smallbiznis/mensalidade/internal/client/repository"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/dbtest"
	"github.com/smallbiznis/mensalidade/internal/installment/domain"
	"github.com/smallbiznis/mensalidade/internal/installment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fixture struct {
	svc    domain.Service
	clk    *clock.FakeClock
	client clientdomain.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC))
	clientRepo := clientrepository.Provide()

	client := clientdomain.Client{
		ID:        node.Generate(),
		Name:      "Ana",
		Phone:     "11987654321",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}
	require.NoError(t, clientRepo.Insert(context.Background(), db, &client))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Calendar:   clock.NewCalendar(time.UTC),
		Repo:       repository.Provide(),
		ClientRepo: clientRepo,
	})
	return fixture{svc: svc, clk: clk, client: client}
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "-5", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "abc", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "10", DueDate: ""})
	assert.ErrorIs(t, err, domain.ErrMissingDueDate)

	_, err = f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: "999", Amount: "10", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: "x", Amount: "10", DueDate: "2024-02-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestListByClientDerivesEffectiveStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "30.00", DueDate: "2024-01-10"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "30.00", DueDate: "2024-01-20"})
	require.NoError(t, err)

	views, err := f.svc.ListByClient(ctx, f.client.ID.String())
	require.NoError(t, err)
	require.Len(t, views, 2)

	// newest due date first
	assert.Equal(t, domain.EffectiveOpen, views[0].EffectiveStatus)
	assert.Equal(t, domain.EffectiveOverdue, views[1].EffectiveStatus)
	assert.Equal(t, domain.StatusPending, views[1].Status, "overdue stays derived")
}

func TestSetStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "50.00", DueDate: "2024-01-10"})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: inst.ID.String(), Status: "overdue"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: "12345", Status: "paid"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.clk.Advance(2 * time.Hour)
	paid, err := f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: inst.ID.String(), Status: "PAID"})
	require.NoError(t, err)
	assert.Equal(t, domain.EffectivePaid, paid.EffectiveStatus)
	assert.True(t, f.clk.Now().Equal(paid.UpdatedAt))

	// repeating the same status keeps the settlement instant
	f.clk.Advance(time.Hour)
	again, err := f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: inst.ID.String(), Status: "paid"})
	require.NoError(t, err)
	assert.True(t, paid.UpdatedAt.Equal(again.UpdatedAt))

	reopened, err := f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: inst.ID.String(), Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, domain.EffectiveOverdue, reopened.EffectiveStatus)
}

func TestMarkPaidUsesGatewayInstant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.svc.Create(ctx, domain.CreateInstallmentRequest{ClientID: f.client.ID.String(), Amount: "99.90", DueDate: "2024-01-31", IsRecurring: true, SequenceNumber: 2})
	require.NoError(t, err)

	paidAt := time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)
	view, err := f.svc.MarkPaid(ctx, inst.ID.String(), paidAt)
	require.NoError(t, err)
	assert.True(t, paidAt.Equal(view.UpdatedAt))

	stored, err := f.svc.Get(ctx, inst.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("99.90")))
	assert.True(t, stored.IsRecurring)
	assert.Equal(t, 2, stored.SequenceNumber)
}
