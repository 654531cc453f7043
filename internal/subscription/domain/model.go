package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	plandomain "github.com/smallbiznis/mensalidade/internal/plan/domain"
	"gorm.io/datatypes"
)

// FirstDueOffsetDays is the fixed gap between the start date and the first due date.
// It does not follow calendar months.
const FirstDueOffsetDays = 30

type ActivateRequest struct {
	ClientID  string
	PlanID    string
	StartDate string
}

// Activation is the result of a successful activation.
type Activation struct {
	Client      clientdomain.Client           `json:"client"`
	Installment installmentdomain.Installment `json:"installment"`
}

type Service interface {
	Activate(ctx context.Context, req ActivateRequest) (Activation, error)
	// Cancel flags the subscription inactive. The plan reference and every
	// installment are kept.
	Cancel(ctx context.Context, clientID string) (clientdomain.Client, error)
}

var (
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidStartDate     = errors.New("invalid_start_date")
	ErrClientNotFound       = errors.New("client_not_found")
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrPlanInactive         = errors.New("plan_inactive")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrSubscriptionInactive = errors.New("subscription_not_active")
)

// ActivateSubscription applies an activation to client and builds the first
// installment. It performs no I/O.
func ActivateSubscription(
	client clientdomain.Client,
	plan plandomain.Plan,
	startDate time.Time,
	installmentID snowflake.ID,
	now time.Time,
) (clientdomain.Client, installmentdomain.Installment, error) {
	if !plan.Active {
		return clientdomain.Client{}, installmentdomain.Installment{}, ErrPlanInactive
	}
	if !plan.Price.IsPositive() {
		return clientdomain.Client{}, installmentdomain.Installment{}, ErrInvalidPrice
	}

	planID := plan.ID
	client.SubscriptionActive = true
	client.PlanID = &planID
	client.UpdatedAt = now

	inst := installmentdomain.Installment{
		ID:             installmentID,
		ClientID:       client.ID,
		Amount:         plan.Price,
		DueDate:        clock.AddDays(startDate, FirstDueOffsetDays),
		Status:         installmentdomain.StatusPending,
		IsRecurring:    true,
		SequenceNumber: 1,
		Metadata: datatypes.JSONMap{
			"plan_id":    plan.ID.String(),
			"start_date": clock.Truncate(startDate).Format(clock.DateLayout),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return client, inst, nil
}
