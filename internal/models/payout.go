package models

import "time"

// Payout 商家结算单
type Payout struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                        // 主键
	PayoutNo          string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"payout_no"`      // 结算单号
	VendorID          uint       `gorm:"index;not null" json:"vendor_id"`                             // 商家ID
	Amount            Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 佣金净额合计
	ProcessingFee     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"processing_fee"` // 转账手续费
	NetAmount         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`     // 实际到账 = 合计 - 手续费
	CommissionCount   int        `gorm:"not null;default:0" json:"commission_count"`                  // 佣金笔数
	Currency          string     `gorm:"type:varchar(8);not null" json:"currency"`                    // 币种
	BankName          string     `gorm:"type:varchar(120)" json:"bank_name"`                          // 开户行快照
	BankAccountName   string     `gorm:"type:varchar(120)" json:"bank_account_name"`                  // 账户名快照
	BankAccountNumber string     `gorm:"type:varchar(64)" json:"bank_account_number"`                 // 银行账号快照（脱敏）
	BankRoutingCode   string     `gorm:"type:varchar(64)" json:"bank_routing_code"`                   // 路由/SWIFT 代码快照
	TransferReference string     `gorm:"type:varchar(128)" json:"transfer_reference"`                 // 银行转账流水号
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`               // 状态
	Notes             string     `gorm:"type:text" json:"notes"`                                      // 备注/失败原因
	RequestedBy       string     `gorm:"type:varchar(64)" json:"requested_by"`                        // 发起人
	ProcessedBy       string     `gorm:"type:varchar(64)" json:"processed_by"`                        // 处理人
	RequestedAt       time.Time  `gorm:"index" json:"requested_at"`                                   // 发起时间
	ProcessingAt      *time.Time `json:"processing_at"`                                               // 开始处理时间
	CompletedAt       *time.Time `json:"completed_at"`                                                // 完成时间
	FailedAt          *time.Time `json:"failed_at"`                                                   // 失败时间
	CancelledAt       *time.Time `json:"cancelled_at"`                                                // 取消时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                                     // 更新时间

	Commissions []Commission `gorm:"many2many:payout_commissions;joinForeignKey:PayoutID;joinReferences:CommissionID" json:"commissions,omitempty"` // 结算包含的佣金
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}

// PayoutCommission 结算单与佣金关联（失败/取消后保留作为历史）
type PayoutCommission struct {
	PayoutID     uint      `gorm:"primaryKey" json:"payout_id"`                         // 结算单ID
	CommissionID uint      `gorm:"primaryKey" json:"commission_id"`                     // 佣金ID
	Amount       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 计入金额快照
	CreatedAt    time.Time `json:"created_at"`                                          // 关联时间
}

// TableName 指定表名
func (PayoutCommission) TableName() string {
	return "payout_commissions"
}
