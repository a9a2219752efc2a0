package model

import "time"

// 配送先住所。ユーザーごとにデフォルトは最大1件。
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"userId"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" json:"fullName"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	//番地など
	Line1 string `gorm:"type:varchar(255);not null" json:"line1"`

	//建物名など
	Line2    string `gorm:"type:varchar(255)" json:"line2"`
	Landmark string `gorm:"type:varchar(255)" json:"landmark"`

	City  string `gorm:"type:varchar(100);not null" json:"city"`
	State string `gorm:"type:varchar(100);not null" json:"state"`

	//PINコード
	PostalCode string `gorm:"type:varchar(20);not null" json:"postalCode"`
	Country    string `gorm:"type:varchar(2);not null;default:'IN'" json:"country"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"isDefault"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
