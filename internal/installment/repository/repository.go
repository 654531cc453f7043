package repository

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/installment/domain"
	"gorm.io/gorm"
)

const installmentColumns = `id, client_id, amount, due_date, status, is_recurring, sequence_number,
	sent_today, send_cancelled, metadata, created_at, updated_at`

const clientBatchSize = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inst *domain.Installment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO installments (`+installmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID,
		inst.ClientID,
		inst.Amount,
		inst.DueDate,
		inst.Status,
		inst.IsRecurring,
		inst.SequenceNumber,
		inst.SentToday,
		inst.SendCancelled,
		inst.Metadata,
		inst.CreatedAt,
		inst.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Installment, error) {
	var inst domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`,
		id,
	).Scan(&inst).Error
	if err != nil {
		return nil, err
	}
	if inst.ID == 0 {
		return nil, nil
	}
	return &inst, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM installments WHERE id = ?`,
		id,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments
		 WHERE client_id = ?
		 ORDER BY due_date DESC, sequence_number DESC, id DESC`,
		clientID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListByClients queries in batches of clientBatchSize ids to stay under the
// driver's bound-parameter limit. Results are ordered by client, due date, id.
func (r *repo) ListByClients(ctx context.Context, db *gorm.DB, clientIDs []snowflake.ID) ([]domain.Installment, error) {
	ids := slices.Clone(clientIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	items := []domain.Installment{}
	for batch := range slices.Chunk(ids, clientBatchSize) {
		var rows []domain.Installment
		err := db.WithContext(ctx).Raw(
			`SELECT `+installmentColumns+` FROM installments
			 WHERE client_id IN ?
			 ORDER BY client_id, due_date, id`,
			batch,
		).Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		items = append(items, rows...)
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT ` + installmentColumns + ` FROM installments ORDER BY due_date, id`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListReminderCandidates(ctx context.Context, db *gorm.DB, dueOnOrBefore time.Time) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).Raw(
		`SELECT `+installmentColumns+` FROM installments
		 WHERE status = ? AND sent_today = ? AND send_cancelled = ? AND due_date <= ?
		 ORDER BY due_date, sequence_number, id`,
		domain.StatusPending,
		false,
		false,
		dueOnOrBefore,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetStatus is the only write that moves updated_at.
func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE installments SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ClaimSent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE installments SET sent_today = ? WHERE id = ? AND sent_today = ?`,
		true,
		id,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ReleaseSent(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE installments SET sent_today = ? WHERE id = ? AND sent_today = ?`,
		false,
		id,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) CancelSend(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE installments SET send_cancelled = ? WHERE id = ?`,
		true,
		id,
	).Error
}

func (r *repo) ResetSentToday(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE installments SET sent_today = ? WHERE sent_today = ?`,
		false,
		true,
	)
	return res.RowsAffected, res.Error
}
