package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/client/repository"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/dbtest"
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

func TestCreateClient(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{
		Name:        "  Maria Souza ",
		Phone:       "(11) 98765-4321",
		TaxDocument: "123.456.789-00",
		BirthDate:   "1990-07-21",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", client.Name)
	assert.Equal(t, "11987654321", client.Phone)
	require.NotNil(t, client.BirthDate)
	assert.Equal(t, clock.Date(1990, 7, 21), *client.BirthDate)
	assert.False(t, client.SubscriptionActive)

	got, err := svc.GetByID(ctx, client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, client.ID, got.ID)
	require.NotNil(t, got.TaxDocument)
	assert.Equal(t, "123.456.789-00", *got.TaxDocument)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateClientRequest{Name: "", Phone: "11987654321"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "João", Phone: "123"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "João", Phone: "11987654321", BirthDate: "21/07/1990"})
	assert.ErrorIs(t, err, domain.ErrInvalidBirthDate)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "João", Phone: "11 98765 4321"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "Outro", Phone: "11987654321"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)
}

func TestDeleteIsSoft(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	kept, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Bruno", Phone: "21999990000"})
	require.NoError(t, err)
	gone, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Carla", Phone: "21999990001"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, gone.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, gone.ID.String()), domain.ErrNotFound)

	_, err = svc.GetByID(ctx, gone.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, domain.ListClientRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	_, err = svc.GetByID(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDeletedClientReleasesPhone(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Carla", Phone: "21999990001"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, first.ID.String()))

	second, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Carla Lima", Phone: "(21) 99999-0001"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "Outra", Phone: "21999990001"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)
}

func TestClientMetadataIsStored(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateClientRequest{
		Name:     "Bruno",
		Phone:    "21999990000",
		Metadata: map[string]any{"turma": "manhã", "dia_vencimento": 10},
	})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "manhã", got.Metadata["turma"])
	assert.EqualValues(t, 10, got.Metadata["dia_vencimento"])

	plain, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Carla", Phone: "21999990001"})
	require.NoError(t, err)
	assert.NotNil(t, plain.Metadata)
	assert.Empty(t, plain.Metadata)

	_, err = svc.Create(ctx, domain.CreateClientRequest{
		Name:     "Dora",
		Phone:    "21999990002",
		Metadata: map[string]any{" ": "x"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMetadata)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511987654321", domain.NormalizePhone("+55 (11) 98765-4321"))
	assert.Equal(t, "", domain.NormalizePhone("n/a"))
}
