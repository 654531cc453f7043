package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inst *Installment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Installment, error)
	Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]Installment, error)
	ListByClients(ctx context.Context, db *gorm.DB, clientIDs []snowflake.ID) ([]Installment, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Installment, error)
	// ListReminderCandidates returns pending rows not yet sent today and not
	// cancelled for sending, due on or before dueOnOrBefore.
	ListReminderCandidates(ctx context.Context, db *gorm.DB, dueOnOrBefore time.Time) ([]Installment, error)

	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, at time.Time) (int64, error)
	// ClaimSent flips sent_today from false to true and reports whether this caller won.
	ClaimSent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// ReleaseSent undoes a claim whose reminder was never delivered.
	ReleaseSent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	CancelSend(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ResetSentToday(ctx context.Context, db *gorm.DB) (int64, error)
}
