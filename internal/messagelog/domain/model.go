package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusSent  Status = "sent"
	StatusError Status = "error"
)

// MessageLog records one delivery attempt. Rows are never updated.
type MessageLog struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	ClientID      snowflake.ID  `gorm:"not null;index" json:"client_id"`
	InstallmentID *snowflake.ID `gorm:"index" json:"installment_id,omitempty"`
	Phone         string        `gorm:"not null" json:"phone"`
	Status        Status        `gorm:"type:varchar(16);not null" json:"status"`
	Error         *string       `json:"error,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;index" json:"created_at"`
}

func (MessageLog) TableName() string {
	return "message_logs"
}

type ListFilter struct {
	ClientID *snowflake.ID
	Status   Status
	Limit    int
	// Before pages backwards from a (created_at, id) cursor.
	BeforeCreatedAt *time.Time
	BeforeID        snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *MessageLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]MessageLog, error)
}

type RecordRequest struct {
	ClientID      snowflake.ID
	InstallmentID *snowflake.ID
	Phone         string
	Status        Status
	Err           error
}

type ListRequest struct {
	ClientID  string
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Logs          []MessageLog `json:"logs"`
	NextPageToken string       `json:"next_page_token,omitempty"`
	HasMore       bool         `json:"has_more"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (MessageLog, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidClient    = errors.New("invalid_client")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
