package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Client is a paying customer. Rows are soft-deleted only.
type Client struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name               string            `gorm:"not null" json:"name"`
	Phone              string            `gorm:"not null;uniqueIndex:idx_clients_phone,where:deleted = false" json:"phone"`
	TaxDocument        *string           `json:"tax_document,omitempty"`
	BirthDate          *time.Time        `gorm:"type:date" json:"birth_date,omitempty"`
	PlanID             *snowflake.ID     `gorm:"index" json:"plan_id,omitempty"`
	SubscriptionActive bool              `gorm:"not null;default:false" json:"subscription_active"`
	Deleted            bool              `gorm:"not null;default:false;index" json:"deleted"`
	DeletedAt          *time.Time        `json:"deleted_at,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}

// Snapshot is the slice of a client the dashboard needs, joined with its plan price.
type Snapshot struct {
	ID                 snowflake.ID     `gorm:"column:id"`
	SubscriptionActive bool             `gorm:"column:subscription_active"`
	Deleted            bool             `gorm:"column:deleted"`
	PlanID             *snowflake.ID    `gorm:"column:plan_id"`
	PlanPrice          *decimal.Decimal `gorm:"column:plan_price"`
}

// Contact is what the reminder dispatcher needs to address a client.
type Contact struct {
	ID    snowflake.ID `gorm:"column:id"`
	Name  string       `gorm:"column:name"`
	Phone string       `gorm:"column:phone"`
}
