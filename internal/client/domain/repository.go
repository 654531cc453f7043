package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	// List returns clients that are not soft-deleted.
	List(ctx context.Context, db *gorm.DB, filter ListClientFilter) ([]Client, error)
	ListSnapshots(ctx context.Context, db *gorm.DB) ([]Snapshot, error)
	ListContacts(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Contact, error)
	UpdateSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, planID *snowflake.ID, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)
}
