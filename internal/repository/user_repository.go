package repository

import (
	"context"
	"time"

	"air5star/internal/domain/model"
)

// 管理者用のユーザー一覧条件
type UserListFilter struct {
	Page     int
	Limit    int
	Q        string // email / name 部分一致
	Role     *model.Role
	IsActive *bool
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email重複は ErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// プロフィール（name / phone）の更新
	UpdateProfile(ctx context.Context, userID int64, name, phone string) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	SetActive(ctx context.Context, userID int64, isActive bool) error
	//トークンのバージョンを＋１して新しい値を返す
	IncrementTokenVersion(ctx context.Context, userID int64) (int, error)
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)
}

// パスワード再設定トークン
type PasswordResetRepository interface {
	Create(ctx context.Context, token model.PasswordResetToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error)
	// 未使用のときだけ使用済みにする（使用済みなら ErrNotFound）
	MarkUsed(ctx context.Context, tokenID int64, usedAt time.Time) error
}
