package repository

import (
	"context"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// limit/offset の丸めは usecase 側
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})

	if f.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *f.ActorUserID)
	}
	if len(f.Actions) > 0 {
		q = q.Where("action IN ?", f.Actions)
	}
	if len(f.ResourceTypes) > 0 {
		q = q.Where("resource_type IN ?", f.ResourceTypes)
	}
	if f.ResourceID != nil {
		q = q.Where("resource_id = ?", *f.ResourceID)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}

	logs := []model.AuditLog{}
	err := q.Order("created_at desc, id desc").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

var _ repo.AuditLogRepository = (*AuditLogGormRepository)(nil)
