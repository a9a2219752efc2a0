package repository

import (
	"context"
	"time"

	"air5star/internal/domain/model"
)

// 管理画面の監査ログ絞り込み。
// Actions / ResourceTypes は複数指定でOR（例: coupon と category の変更だけ見る）
type AuditLogFilter struct {
	ActorUserID   *int64
	Actions       []model.AuditAction
	ResourceTypes []model.AuditResourceType
	ResourceID    *int64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

type AuditLogRepository interface {
	// 管理者操作と同じtxで書く
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
