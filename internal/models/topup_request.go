package models

import (
	"time"

	"gorm.io/gorm"
)

// TopupRequest 话费/流量充值请求表（钱包扣款后由运营侧处理）
type TopupRequest struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                    // 主键
	UserID      uint           `gorm:"index;not null" json:"user_id"`                           // 用户ID
	Type        string         `gorm:"type:varchar(16);index;not null" json:"type"`             // 请求类型 airtime/data
	Network     string         `gorm:"type:varchar(32);not null" json:"network"`                // 运营商
	PhoneNumber string         `gorm:"type:varchar(32);not null" json:"phone_number"`           // 充值手机号
	Plan        string         `gorm:"type:varchar(64)" json:"plan,omitempty"`                  // 流量套餐（流量请求时）
	Amount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`     // 扣款金额
	Reference   string         `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 扣款参考号
	Status      string         `gorm:"type:varchar(16);index;not null" json:"status"`           // 处理状态
	Remark      string         `gorm:"type:varchar(255)" json:"remark,omitempty"`               // 处理备注
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`                                  // 处理完成时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (TopupRequest) TableName() string {
	return "topup_requests"
}
