package repository

import (
	"context"

	"github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.MessageLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO message_logs (id, client_id, installment_id, phone, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ClientID,
		entry.InstallmentID,
		entry.Phone,
		entry.Status,
		entry.Error,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.MessageLog, error) {
	var logs []domain.MessageLog
	stmt := db.WithContext(ctx).Model(&domain.MessageLog{})
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.BeforeCreatedAt != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			*filter.BeforeCreatedAt, *filter.BeforeCreatedAt, filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
