package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the stored status of an installment. Only paid and cancelled are
// authoritative; pending and overdue are re-derived at read time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Installment is one charge owed by a client.
type Installment struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID      `gorm:"not null;index" json:"client_id"`
	Amount         decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate        time.Time         `gorm:"type:date;not null;index" json:"due_date"`
	Status         Status            `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	IsRecurring    bool              `gorm:"column:is_recurring;not null;default:false" json:"is_recurring"`
	SequenceNumber int               `gorm:"not null;default:0" json:"sequence_number"`
	SentToday      bool              `gorm:"not null;default:false" json:"sent_today"`
	SendCancelled  bool              `gorm:"not null;default:false" json:"send_cancelled"`
	Metadata       datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (Installment) TableName() string {
	return "installments"
}

// View pairs a stored installment with its status as of a given day.
type View struct {
	Installment
	EffectiveStatus EffectiveStatus `json:"effective_status"`
}
