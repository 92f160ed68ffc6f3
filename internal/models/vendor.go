package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor 商家表
type Vendor struct {
	ID                    uint                `gorm:"primarykey" json:"id"`                                           // 主键
	UserID                uint                `gorm:"uniqueIndex;not null" json:"user_id"`                            // 商家账号用户ID
	Name                  string              `gorm:"type:varchar(120);not null" json:"name"`                         // 商家名称
	Slug                  string              `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`             // 商家标识
	ContactEmail          string              `gorm:"type:varchar(255)" json:"contact_email"`                         // 联系邮箱
	DefaultCommissionRate decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"default_commission_rate"`               // 商家默认分成比例（百分比，空表示使用平台默认）
	Status                string              `gorm:"type:varchar(20);not null;default:'active'" json:"status"`       // 状态
	BankName              string              `gorm:"type:varchar(120)" json:"bank_name"`                             // 开户行
	BankAccountName       string              `gorm:"type:varchar(120)" json:"bank_account_name"`                     // 账户名
	BankAccountNumber     string              `gorm:"type:varchar(64)" json:"-"`                                      // 银行账号
	BankRoutingCode       string              `gorm:"type:varchar(64)" json:"bank_routing_code"`                      // 路由/SWIFT 代码
	CreatedAt             time.Time           `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt             time.Time           `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt             gorm.DeletedAt      `gorm:"index" json:"-"`                                                 // 软删除时间

	Brands []Brand `gorm:"foreignKey:VendorID" json:"brands,omitempty"` // 旗下品牌
}

// TableName 指定表名
func (Vendor) TableName() string {
	return "vendors"
}

// MaskedAccountNumber 返回脱敏后的银行账号
func (v Vendor) MaskedAccountNumber() string {
	return MaskAccountNumber(v.BankAccountNumber)
}

// HasBankDetails 银行信息是否完整
func (v Vendor) HasBankDetails() bool {
	return v.BankName != "" && v.BankAccountName != "" && v.BankAccountNumber != ""
}

// MaskAccountNumber 仅保留末 4 位
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	masked := make([]byte, len(number))
	for i := range masked {
		if i < len(number)-4 {
			masked[i] = '*'
		} else {
			masked[i] = number[i]
		}
	}
	return string(masked)
}
