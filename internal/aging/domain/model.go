package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Tier is the access class of a client derived from its reference installment.
type Tier string

const (
	TierEmDia         Tier = "em_dia"
	TierAtrasoRecente Tier = "atraso_recente"
	TierBloqueado     Tier = "bloqueado"
	TierInativo       Tier = "inativo"
	// TierNoQualifyingInstallment marks clients without any recurring installment.
	// They are reported but never summed.
	TierNoQualifyingInstallment Tier = "no_qualifying_installment"
)

// Tiers lists the summed tiers in escalation order.
var Tiers = []Tier{TierEmDia, TierAtrasoRecente, TierBloqueado, TierInativo}

// Thresholds are inclusive upper bounds in whole days late.
type Thresholds struct {
	RecentMaxDays  int
	BlockedMaxDays int
}

func DefaultThresholds() Thresholds {
	return Thresholds{RecentMaxDays: 7, BlockedMaxDays: 30}
}

type Classification struct {
	ClientID               snowflake.ID    `json:"client_id"`
	Tier                   Tier            `json:"tier"`
	ReferenceInstallmentID snowflake.ID    `json:"reference_installment_id,omitempty"`
	DaysLate               int             `json:"days_late"`
	Amount                 decimal.Decimal `json:"amount"`
}

type TierSummary struct {
	Amount  decimal.Decimal `json:"amount"`
	Clients int             `json:"clients"`
}

type Result struct {
	Clients map[snowflake.ID]Classification `json:"clients"`
	Summary map[Tier]TierSummary            `json:"summary"`
}

type Service interface {
	Classify(ctx context.Context) (Result, error)
}
