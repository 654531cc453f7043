package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recurring(id, clientID snowflake.ID, due string, status installmentdomain.Status, amount string) installmentdomain.Installment {
	dueDate, err := clock.ParseDate(due)
	if err != nil {
		panic(err)
	}
	return installmentdomain.Installment{
		ID:             id,
		ClientID:       clientID,
		Amount:         decimal.RequireFromString(amount),
		DueDate:        dueDate,
		Status:         status,
		IsRecurring:    true,
		SequenceNumber: 1,
	}
}

func TestClassifyRecentlyLate(t *testing.T) {
	result := ClassifyClients([]installmentdomain.Installment{
		recurring(1, 10, "2024-01-10", installmentdomain.StatusPending, "99.90"),
	}, clock.Date(2024, 1, 15), DefaultThresholds())

	c := result.Clients[10]
	assert.Equal(t, TierAtrasoRecente, c.Tier)
	assert.Equal(t, 5, c.DaysLate)
	assert.Equal(t, snowflake.ID(1), c.ReferenceInstallmentID)
}

func TestClassifyInactive(t *testing.T) {
	result := ClassifyClients([]installmentdomain.Installment{
		recurring(1, 10, "2024-01-01", installmentdomain.StatusPending, "99.90"),
	}, clock.Date(2024, 2, 20), DefaultThresholds())

	assert.Equal(t, TierInativo, result.Clients[10].Tier)
	assert.Equal(t, 50, result.Clients[10].DaysLate)
}

func TestTierBoundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		days int
		want Tier
	}{
		{0, TierEmDia},
		{1, TierAtrasoRecente},
		{7, TierAtrasoRecente},
		{8, TierBloqueado},
		{30, TierBloqueado},
		{31, TierInativo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.days, th), "days late %d", tc.days)
	}
}

func TestDueTodayAndFutureAreEmDia(t *testing.T) {
	today := clock.Date(2024, 1, 15)
	result := ClassifyClients([]installmentdomain.Installment{
		recurring(1, 10, "2024-01-15", installmentdomain.StatusPending, "50"),
		recurring(2, 11, "2024-02-14", installmentdomain.StatusPending, "50"),
	}, today, DefaultThresholds())

	assert.Equal(t, TierEmDia, result.Clients[10].Tier)
	assert.Equal(t, 0, result.Clients[10].DaysLate)
	assert.Equal(t, TierEmDia, result.Clients[11].Tier)
	assert.Equal(t, 0, result.Clients[11].DaysLate)
}

func TestLatestRecurringInstallmentGoverns(t *testing.T) {
	today := clock.Date(2024, 3, 20)
	oneOff := recurring(4, 10, "2024-03-25", installmentdomain.StatusPending, "10")
	oneOff.IsRecurring = false

	result := ClassifyClients([]installmentdomain.Installment{
		// an old unpaid installment does not matter once a later one is paid
		recurring(1, 10, "2024-01-01", installmentdomain.StatusPending, "99.90"),
		recurring(2, 10, "2024-03-01", installmentdomain.StatusPaid, "99.90"),
		oneOff,
	}, today, DefaultThresholds())

	c := result.Clients[10]
	assert.Equal(t, TierEmDia, c.Tier)
	assert.Equal(t, snowflake.ID(2), c.ReferenceInstallmentID)
}

func TestReferenceTieBreak(t *testing.T) {
	first := recurring(5, 10, "2024-03-01", installmentdomain.StatusPaid, "99.90")
	second := recurring(3, 10, "2024-03-01", installmentdomain.StatusPending, "99.90")
	second.SequenceNumber = 2

	result := ClassifyClients([]installmentdomain.Installment{first, second}, clock.Date(2024, 3, 20), DefaultThresholds())
	assert.Equal(t, snowflake.ID(3), result.Clients[10].ReferenceInstallmentID)
	assert.Equal(t, TierBloqueado, result.Clients[10].Tier)

	third := recurring(9, 10, "2024-03-01", installmentdomain.StatusPaid, "99.90")
	third.SequenceNumber = 2
	result = ClassifyClients([]installmentdomain.Installment{first, second, third}, clock.Date(2024, 3, 20), DefaultThresholds())
	assert.Equal(t, snowflake.ID(9), result.Clients[10].ReferenceInstallmentID)
}

func TestClientsWithoutRecurringInstallmentAreLeftOut(t *testing.T) {
	oneOff := recurring(1, 10, "2024-01-01", installmentdomain.StatusPending, "10")
	oneOff.IsRecurring = false

	result := ClassifyClients([]installmentdomain.Installment{oneOff}, clock.Date(2024, 3, 1), DefaultThresholds())
	assert.Empty(t, result.Clients)
	for _, tier := range Tiers {
		assert.Equal(t, 0, result.Summary[tier].Clients)
		assert.True(t, result.Summary[tier].Amount.IsZero())
	}
}

func TestTiersPartitionClients(t *testing.T) {
	today := clock.Date(2024, 6, 30)
	var installments []installmentdomain.Installment
	var id snowflake.ID
	for client := snowflake.ID(1); client <= 40; client++ {
		for k := 0; k < 3; k++ {
			id++
			due := clock.AddDays(today, -int(client)*2+k*5)
			status := installmentdomain.StatusPending
			if (int(client)+k)%4 == 0 {
				status = installmentdomain.StatusPaid
			}
			installments = append(installments, installmentdomain.Installment{
				ID:             id,
				ClientID:       client,
				Amount:         decimal.NewFromInt(int64(client)),
				DueDate:        due,
				Status:         status,
				IsRecurring:    true,
				SequenceNumber: k + 1,
			})
		}
	}

	result := ClassifyClients(installments, today, DefaultThresholds())
	require.Len(t, result.Clients, 40)

	total := 0
	sum := decimal.Zero
	for _, tier := range Tiers {
		total += result.Summary[tier].Clients
		sum = sum.Add(result.Summary[tier].Amount)
	}
	assert.Equal(t, 40, total)

	expected := decimal.Zero
	for _, c := range result.Clients {
		expected = expected.Add(c.Amount)
	}
	assert.True(t, expected.Equal(sum))
}
