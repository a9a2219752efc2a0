package model

import "time"

// 在庫更新、注文ステータス更新など。
type AuditAction string

const (
	//在庫を更新した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//ユーザーの有効/無効を切り替えた操作。
	AuditActionUpdateUserStatus AuditAction = "UPDATE_USER_STATUS"
	//強制ログアウト。
	AuditActionForceLogout AuditAction = "FORCE_LOGOUT"
	//クーポン作成。
	AuditActionCreateCoupon AuditAction = "CREATE_COUPON"
	//カテゴリ作成・更新・削除。
	AuditActionChangeCategory AuditAction = "CHANGE_CATEGORY"
)

// 何に対する操作か
type AuditResourceType string

const (
	//商品に対する操作。
	AuditResourceProduct AuditResourceType = "product"

	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//ユーザーに対する操作。
	AuditResourceUser AuditResourceType = "user"

	//クーポンに対する操作。
	AuditResourceCoupon AuditResourceType = "coupon"

	//カテゴリに対する操作。
	AuditResourceCategory AuditResourceType = "category"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionUpdateStock, AuditActionUpdateOrderStatus, AuditActionUpdateUserStatus,
		AuditActionForceLogout, AuditActionCreateCoupon, AuditActionChangeCategory:
		return true
	}
	return false
}

func (t AuditResourceType) Valid() bool {
	switch t {
	case AuditResourceProduct, AuditResourceOrder, AuditResourceUser, AuditResourceCoupon, AuditResourceCategory:
		return true
	}
	return false
}

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	//IDは監査ログの主キー
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主に管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actorUserId"`

	//Actionは操作の種類（UPDATE_STOCK / UPDATE_ORDER_STATUS / FORCE_LOGOUT など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類（product / order / user / coupon / category）。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`

	//対象のID）。
	ResourceID int64 `gorm:"not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"beforeJson"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"afterJson"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
