package models

import "time"

// ReconcileAlert 对账告警表（成功事件找不到入账对象时留痕待人工处理）
type ReconcileAlert struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                // 主键
	Reference  string     `gorm:"type:varchar(128);index;not null" json:"reference"`   // 网关参考号
	Email      string     `gorm:"type:varchar(128);index" json:"email"`                // 事件中的客户邮箱
	Amount     Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 事件金额
	Currency   string     `gorm:"type:varchar(8)" json:"currency"`                     // 币种
	Channel    string     `gorm:"type:varchar(32)" json:"channel"`                     // 支付渠道
	Reason     string     `gorm:"type:varchar(64);not null" json:"reason"`             // 告警原因
	Status     string     `gorm:"type:varchar(16);index;not null" json:"status"`       // 告警状态 open/resolved
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`                               // 处理时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt  time.Time  `gorm:"index" json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (ReconcileAlert) TableName() string {
	return "reconcile_alerts"
}
