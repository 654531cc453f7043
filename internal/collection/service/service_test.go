package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	clientrepository "github.com/smallbiznis/mensalidade/internal/client/repository"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/collection/domain"
	"github.com/smallbiznis/mensalidade/internal/collection/domain/mocks"
	"github.com/smallbiznis/mensalidade/internal/config"
	"github.com/smallbiznis/mensalidade/internal/dbtest"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	installmentrepository "github.com/smallbiznis/mensalidade/internal/installment/repository"
	messagelogdomain "github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	messagelogrepository "github.com/smallbiznis/mensalidade/internal/messagelog/repository"
	messagelogservice "github.com/smallbiznis/mensalidade/internal/messagelog/service"
	"github.com/smallbiznis/mensalidade/internal/observability/metrics"
	"github.com/smallbiznis/mensalidade/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	gateway     *mocks.MockGateway
	clients     clientdomain.Repository
	insts       installmentdomain.Repository
	messageLogs messagelogdomain.Service
	locker      *ratelimit.Locker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(fixtureNow)

	return &fixture{
		db:      db,
		node:    node,
		gateway: mocks.NewMockGateway(ctrl),
		clients: clientrepository.Provide(),
		insts:   installmentrepository.Provide(),
		messageLogs: messagelogservice.New(messagelogservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  messagelogrepository.Provide(),
		}),
	}
}

func (f *fixture) service() domain.Service {
	return New(Params{
		DB:              f.db,
		Log:             zap.NewNop(),
		Clock:           clock.NewFakeClock(fixtureNow),
		Calendar:        clock.NewCalendar(time.UTC),
		Billing:         config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		InstallmentRepo: f.insts,
		ClientRepo:      f.clients,
		MessageLogs:     f.messageLogs,
		Gateway:         f.gateway,
		Locker:          f.locker,
	})
}

func (f *fixture) client(t *testing.T, name, phone string) clientdomain.Client {
	t.Helper()
	c := clientdomain.Client{ID: f.node.Generate(), Name: name, Phone: phone, CreatedAt: fixtureNow, UpdatedAt: fixtureNow}
	require.NoError(t, f.clients.Insert(context.Background(), f.db, &c))
	return c
}

func (f *fixture) installment(t *testing.T, clientID snowflake.ID, due time.Time, mutate func(*installmentdomain.Installment)) installmentdomain.Installment {
	t.Helper()
	inst := installmentdomain.Installment{
		ID:             f.node.Generate(),
		ClientID:       clientID,
		Amount:         decimal.RequireFromString("99.90"),
		DueDate:        due,
		Status:         installmentdomain.StatusPending,
		IsRecurring:    true,
		SequenceNumber: 1,
		CreatedAt:      fixtureNow,
		UpdatedAt:      fixtureNow,
	}
	if mutate != nil {
		mutate(&inst)
	}
	require.NoError(t, f.insts.Insert(context.Background(), f.db, &inst))
	return inst
}

func (f *fixture) load(t *testing.T, id snowflake.ID) installmentdomain.Installment {
	t.Helper()
	inst, err := f.insts.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, inst)
	return *inst
}

func TestQueueExcludesCancelledAndDeletedClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := clock.Date(2024, 1, 15)

	ana := f.client(t, "Ana", "11900000001")
	gone := f.client(t, "Beto", "11900000002")

	a := f.installment(t, ana.ID, today, nil)
	f.installment(t, ana.ID, today, func(i *installmentdomain.Installment) { i.SendCancelled = true })
	f.installment(t, gone.ID, today, nil)
	_, err := f.clients.SoftDelete(ctx, f.db, gone.ID, fixtureNow)
	require.NoError(t, err)

	queue, err := f.service().Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, a.ID, queue[0].ID)
	assert.Equal(t, "11900000001", queue[0].Phone)
	assert.Equal(t, installmentdomain.EffectiveOpen, queue[0].EffectiveStatus)
}

func TestMarkSentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	ana := f.client(t, "Ana", "11900000001")
	inst := f.installment(t, ana.ID, clock.Date(2024, 1, 15), nil)

	first, err := svc.MarkSent(ctx, inst.ID.String())
	require.NoError(t, err)
	assert.True(t, first.Claimed)

	second, err := svc.MarkSent(ctx, inst.ID.String())
	require.NoError(t, err)
	assert.False(t, second.Claimed)

	stored := f.load(t, inst.ID)
	assert.True(t, stored.SentToday)
	assert.True(t, stored.UpdatedAt.Equal(fixtureNow))

	_, err = svc.MarkSent(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrInstallmentNotFound)
	_, err = svc.MarkSent(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCancelSendSurvivesDailyReset(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	ana := f.client(t, "Ana", "11900000001")
	cancelled := f.installment(t, ana.ID, clock.Date(2024, 1, 14), nil)
	sent := f.installment(t, ana.ID, clock.Date(2024, 1, 16), nil)

	require.NoError(t, svc.CancelSend(ctx, cancelled.ID.String()))
	_, err := svc.MarkSent(ctx, sent.ID.String())
	require.NoError(t, err)

	queue, err := svc.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	reset, err := svc.ResetDailyFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	queue, err = svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, sent.ID, queue[0].ID)
	assert.True(t, f.load(t, cancelled.ID).SendCancelled)

	assert.ErrorIs(t, svc.CancelSend(ctx, "424242"), domain.ErrInstallmentNotFound)
}

func TestDispatchMarksOnlyDeliveredReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana := f.client(t, "Ana", "11900000001")
	beto := f.client(t, "Beto", "11900000002")
	delivered := f.installment(t, ana.ID, clock.Date(2024, 1, 10), nil)
	undelivered := f.installment(t, beto.ID, clock.Date(2024, 1, 17), nil)

	f.gateway.EXPECT().
		Send(gomock.Any(), "11900000001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, message string) error {
			assert.Contains(t, message, "Ana")
			assert.Contains(t, message, "10/01/2024")
			assert.Contains(t, message, "5 dia")
			return nil
		})
	f.gateway.EXPECT().
		Send(gomock.Any(), "11900000002", gomock.Any()).
		Return(errors.New("gateway down"))

	summary, err := f.service().Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchSummary{Selected: 2, Sent: 1, Failed: 1}, summary)

	assert.True(t, f.load(t, delivered.ID).SentToday)
	after := f.load(t, undelivered.ID)
	assert.False(t, after.SentToday)
	assert.False(t, after.SendCancelled)

	logs, err := f.messageLogs.List(ctx, messagelogdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, logs.Logs, 2)
	byClient := map[snowflake.ID]messagelogdomain.MessageLog{}
	for _, entry := range logs.Logs {
		byClient[entry.ClientID] = entry
	}
	assert.Equal(t, messagelogdomain.StatusSent, byClient[ana.ID].Status)
	assert.Equal(t, messagelogdomain.StatusError, byClient[beto.ID].Status)
	require.NotNil(t, byClient[beto.ID].Error)
	assert.Equal(t, "gateway down", *byClient[beto.ID].Error)

	// the delivered installment is out of today's queue; the failed one is retried
	f.gateway.EXPECT().Send(gomock.Any(), "11900000002", gomock.Any()).Return(nil)
	summary, err = f.service().Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestDispatchSkipsWhileAnotherRunHoldsTheLock(t *testing.T) {
	f := newFixture(t)
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.locker = ratelimit.NewLocker(client)

	ana := f.client(t, "Ana", "11900000001")
	f.installment(t, ana.ID, clock.Date(2024, 1, 15), nil)

	require.NoError(t, srv.Set(dispatchLockKey, "other-instance"))

	_, err := f.service().Dispatch(context.Background())
	assert.ErrorIs(t, err, domain.ErrDispatchInProgress)
	assert.ErrorIs(t, err, metrics.ErrLockHeld)

	srv.Del(dispatchLockKey)
	f.gateway.EXPECT().Send(gomock.Any(), "11900000001", gomock.Any()).Return(nil)

	summary, err := f.service().Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.False(t, srv.Exists(dispatchLockKey))
}

func TestConcurrentDispatchSendsOnce(t *testing.T) {
	f := newFixture(t)
	svc := f.service()
	ctx := context.Background()

	ana := f.client(t, "Ana", "11900000001")
	inst := f.installment(t, ana.ID, clock.Date(2024, 1, 15), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gateway.EXPECT().
		Send(gomock.Any(), "11900000001", gomock.Any()).
		DoAndReturn(func(context.Context, string, string) error {
			close(entered)
			<-release
			return nil
		}).
		Times(1)

	var (
		wg    sync.WaitGroup
		first domain.DispatchSummary
		err   error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, err = svc.Dispatch(ctx)
	}()
	<-entered

	// same process
	_, concurrentErr := svc.Dispatch(ctx)
	assert.ErrorIs(t, concurrentErr, domain.ErrDispatchInProgress)

	// another process without a shared lock sees the claim
	other, otherErr := f.service().Dispatch(ctx)
	require.NoError(t, otherErr)
	assert.Equal(t, domain.DispatchSummary{}, other)

	close(release)
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchSummary{Selected: 1, Sent: 1}, first)
	assert.True(t, f.load(t, inst.ID).SentToday)
}

func TestDispatchSkipsInstallmentClaimedMidRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana := f.client(t, "Ana", "11900000001")
	beto := f.client(t, "Beto", "11900000002")
	f.installment(t, ana.ID, clock.Date(2024, 1, 14), nil)
	claimedElsewhere := f.installment(t, beto.ID, clock.Date(2024, 1, 15), nil)

	f.gateway.EXPECT().
		Send(gomock.Any(), "11900000001", gomock.Any()).
		DoAndReturn(func(context.Context, string, string) error {
			claimed, err := f.insts.ClaimSent(ctx, f.db, claimedElsewhere.ID)
			require.NoError(t, err)
			require.True(t, claimed)
			return nil
		})

	summary, err := f.service().Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchSummary{Selected: 2, Sent: 1, Skipped: 1}, summary)
}
