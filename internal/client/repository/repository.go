package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/client/domain"
	"gorm.io/gorm"
)

const clientColumns = `id, name, phone, tax_document, birth_date, plan_id, subscription_active,
	deleted, deleted_at, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (`+clientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.Name,
		client.Phone,
		client.TaxDocument,
		client.BirthDate,
		client.PlanID,
		client.SubscriptionActive,
		client.Deleted,
		client.DeletedAt,
		client.Metadata,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListClientFilter) ([]domain.Client, error) {
	var clients []domain.Client
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("deleted = ?", false)
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	if filter.SubscriptionActive != nil {
		stmt = stmt.Where("subscription_active = ?", *filter.SubscriptionActive)
	}
	err := stmt.
		Order("name asc, id asc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) ListSnapshots(ctx context.Context, db *gorm.DB) ([]domain.Snapshot, error) {
	var rows []domain.Snapshot
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.subscription_active, c.deleted, c.plan_id, p.price AS plan_price
		 FROM clients c
		 LEFT JOIN plans p ON p.id = c.plan_id
		 WHERE c.deleted = ?
		 ORDER BY c.id`,
		false,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListContacts(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return []domain.Contact{}, nil
	}
	var rows []domain.Contact
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone FROM clients WHERE deleted = ? AND id IN ?`,
		false,
		ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, planID *snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE clients SET subscription_active = ?, plan_id = ?, updated_at = ?
		 WHERE id = ? AND deleted = ?`,
		active,
		planID,
		at,
		id,
		false,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE clients SET deleted = ?, deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted = ?`,
		true,
		at,
		at,
		id,
		false,
	)
	return res.RowsAffected, res.Error
}
