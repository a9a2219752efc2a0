package model

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Name         string `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Phone        string `gorm:"type:varchar(30);not null;default:''" json:"phone"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	// 強制ログアウトで+1
	TokenVersion int        `gorm:"not null;default:0" json:"tokenVersion"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
