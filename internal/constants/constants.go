package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// 钱包交易类型常量
const (
	WalletTxnTypeCredit = "credit"
	WalletTxnTypeDebit  = "debit"
)

// 钱包交易状态常量
const (
	WalletTxnStatusPending = "pending"
	WalletTxnStatusSuccess = "success"
	WalletTxnStatusFailed  = "failed"
)

// 入账渠道常量
const (
	PaymentChannelCard         = "card"
	PaymentChannelBankTransfer = "bank_transfer"
	PaymentChannelUSSD         = "ussd"
	PaymentChannelManual       = "manual"
	PaymentChannelWallet       = "wallet"
)

// 对账结果常量
const (
	ReconcileOutcomeApplied          = "applied"
	ReconcileOutcomeAlreadyApplied   = "already_applied"
	ReconcileOutcomeRejected         = "rejected"
	ReconcileOutcomeNoMatchingTarget = "no_matching_target"
)

// 入账落点常量
const (
	ReferenceActionCreditedWallet  = "credited_wallet"
	ReferenceActionMarkedOrderPaid = "marked_order_paid"
)

// 充值请求（话费/流量）类型与状态常量
const (
	TopupTypeAirtime = "airtime"
	TopupTypeData    = "data"

	TopupStatusPending    = "pending"
	TopupStatusProcessing = "processing"
	TopupStatusCompleted  = "completed"
	TopupStatusFailed     = "failed"
)

// 业务参考号前缀常量
const (
	ReferencePrefixManual      = "MANUAL-"
	ReferencePrefixManualDebit = "MANUAL-DEBIT-"
	ReferencePrefixAirtime     = "REQ-AIR-"
	ReferencePrefixData        = "REQ-DATA-"
	ReferencePrefixOrder       = "NMO-"
	ReferencePrefixFund        = "NMF-"
)

// 对账告警状态常量
const (
	ReconcileAlertStatusOpen     = "open"
	ReconcileAlertStatusResolved = "resolved"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskReconcileAlert       = "reconcile:alert"
	TaskTopupRequestDispatch = "topup:request_dispatch"
	TaskWalletCreditNotify   = "wallet:credit_notify"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "nm"
)

// 币种常量
const (
	SiteCurrencyDefault = "NGN"
)
