package repository

import (
	"air5star/internal/domain/model"
	domainrepo "air5star/internal/repository"
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 更新後の token_version を受け取る
var returningTokenVersion = clause.Returning{Columns: []clause.Column{{Name: "token_version"}}}

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (r *userGormRepository) UpdateProfile(ctx context.Context, id int64, name, phone string) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "phone": phone}))
}

func (r *userGormRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash))
}

func (r *userGormRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at))
}

func (r *userGormRepository) SetActive(ctx context.Context, id int64, isActive bool) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("is_active", isActive))
}

// token_versionを+1 します。
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) (int, error) {
	var u model.User
	res := r.db.WithContext(ctx).
		Model(&u).
		Clauses(returningTokenVersion).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
	if err := affected(res); err != nil {
		return 0, err
	}
	return u.TokenVersion, nil
}

// 管理者用の一覧
func (r *userGormRepository) List(ctx context.Context, f domainrepo.UserListFilter) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})

	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("email ILIKE ? OR name ILIKE ?", like, like)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	offset, limit := paginate(f.Page, f.Limit, 100, 20)
	var users []model.User
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return []model.User{}, 0, err
	}
	return users, total, nil
}
