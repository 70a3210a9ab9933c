package models

import "time"

// PaymentReference 入账参考号表（幂等台账，唯一索引即并发去重关卡）
type PaymentReference struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                    // 主键
	Reference string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"` // 网关参考号
	Action    string    `gorm:"type:varchar(32);not null" json:"action"`                 // 入账落点 credited_wallet/marked_order_paid
	UserID    uint      `gorm:"index" json:"user_id,omitempty"`                          // 入账用户ID（钱包入账时）
	OrderID   uint      `gorm:"index" json:"order_id,omitempty"`                         // 入账订单ID（订单入账时）
	Channel   string    `gorm:"type:varchar(32)" json:"channel"`                         // 入账渠道
	Amount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`     // 入账金额
	Currency  string    `gorm:"type:varchar(8);not null;default:'NGN'" json:"currency"`  // 币种
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (PaymentReference) TableName() string {
	return "payment_references"
}
