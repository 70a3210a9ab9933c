package service

import "errors"

// 业务错误定义，处理器通过 errors.Is 匹配并映射为响应码
var (
	ErrInvalidParams = errors.New("invalid params")

	ErrNotFound        = errors.New("record not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotPayable       = errors.New("order not payable")
	ErrOrderAlreadyPaid      = errors.New("order already paid")
	ErrOrderStatusTransition = errors.New("order status transition not allowed")

	ErrWalletAccountNotFound    = errors.New("wallet account not found")
	ErrWalletInsufficientFunds  = errors.New("wallet insufficient funds")
	ErrWalletAmountInvalid      = errors.New("wallet amount invalid")
	ErrPaymentAlreadyApplied    = errors.New("payment already applied")
	ErrPaymentReferenceNotFound = errors.New("payment reference not found")
	ErrPaymentGatewayUnavailable = errors.New("payment gateway unavailable")

	ErrTopupNotFound        = errors.New("topup request not found")
	ErrTopupStatusFinalized = errors.New("topup request already finalized")

	ErrReconcileAlertNotFound = errors.New("reconcile alert not found")
)
