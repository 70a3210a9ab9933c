package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletAccount 钱包账户表（余额为账本的缓存汇总）
type WalletAccount struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                // 主键
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id"`                 // 用户ID
	Currency  string         `gorm:"type:varchar(8);not null;default:'NGN'" json:"currency"` // 币种
	Balance   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`   // 当前余额
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// WalletTransaction 钱包流水表（只追加账本）
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                      // 主键
	UserID        uint      `gorm:"index;not null" json:"user_id"`                             // 用户ID
	AccountID     uint      `gorm:"index;not null" json:"account_id"`                          // 钱包账户ID
	Type          string    `gorm:"type:varchar(16);index;not null" json:"type"`               // 交易类型 credit/debit
	Status        string    `gorm:"type:varchar(16);index;not null" json:"status"`             // 交易状态 pending/success/failed
	Channel       string    `gorm:"type:varchar(32);index" json:"channel"`                     // 入账渠道
	Reference     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"`   // 业务参考号
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 交易金额
	Currency      string    `gorm:"type:varchar(8);not null;default:'NGN'" json:"currency"`    // 币种
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 交易前余额
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 交易后余额
	Remark        string    `gorm:"type:varchar(255)" json:"remark,omitempty"`                 // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`                                   // 更新时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
