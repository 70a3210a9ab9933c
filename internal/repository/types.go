package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletAccountListFilter 查询钱包账户列表的过滤条件
type WalletAccountListFilter struct {
	Page     int
	PageSize int
	UserID   uint
}

// WalletTransactionListFilter 查询钱包流水列表的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Type        string
	Status      string
	Channel     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentReferenceListFilter 查询入账参考号列表的过滤条件
type PaymentReferenceListFilter struct {
	Page        int
	PageSize    int
	Reference   string
	Action      string
	UserID      uint
	OrderID     uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TopupRequestListFilter 查询充值请求列表的过滤条件
type TopupRequestListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Type        string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReconcileAlertListFilter 查询对账告警列表的过滤条件
type ReconcileAlertListFilter struct {
	Page      int
	PageSize  int
	Status    string
	Reference string
	Email     string
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
