package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfigInvalid     = errors.New("paystack config invalid")
	ErrRequestFailed     = errors.New("paystack request failed")
	ErrResponseInvalid   = errors.New("paystack response invalid")
	ErrSignatureInvalid  = errors.New("paystack signature invalid")
	ErrReferenceNotFound = errors.New("paystack reference not found")
)

// 签名请求头常量
const SignatureHeader = "X-Paystack-Signature"

// 事件类型常量
const (
	EventChargeSuccess = "charge.success"
)

// 交易状态常量
const TxStatusSuccess = "success"

// Config Paystack 配置
type Config struct {
	SecretKey   string `json:"secret_key"`   // sk_xxx 私钥（签名校验与 API 鉴权共用）
	BaseURL     string `json:"base_url"`     // API 地址
	CallbackURL string `json:"callback_url"` // 支付完成跳转地址
	TimeoutMS   int    `json:"timeout_ms"`   // API 请求超时
	Currency    string `json:"currency"`     // 默认币种
}

// Customer 事件中的客户信息
type Customer struct {
	Email string `json:"email"` // 客户邮箱
}

// TransactionData 交易数据（webhook 与 verify 接口共用同一形状）
type TransactionData struct {
	ID              int64    `json:"id"`               // Paystack 交易 ID
	Reference       string   `json:"reference"`        // 交易参考号
	Amount          int64    `json:"amount"`           // 金额（最小货币单位 kobo）
	Currency        string   `json:"currency"`         // 币种
	Status          string   `json:"status"`           // 交易状态
	Channel         string   `json:"channel"`          // 支付渠道
	GatewayResponse string   `json:"gateway_response"` // 网关响应描述
	PaidAt          string   `json:"paid_at"`          // 支付时间
	Customer        Customer `json:"customer"`         // 客户信息
}

// WebhookEvent webhook 事件
type WebhookEvent struct {
	Event string          `json:"event"` // 事件类型
	Data  TransactionData `json:"data"`  // 事件数据
}

// InitializeInput 发起交易输入
type InitializeInput struct {
	Email       string
	AmountMinor int64 // 金额（最小货币单位 kobo）
	Reference   string
	Currency    string
	CallbackURL string
}

// InitializeResult 发起交易结果
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"` // 收银台地址
	AccessCode       string `json:"access_code"`       // 访问码
	Reference        string `json:"reference"`         // 交易参考号
}

// ParseConfig 解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	return nil
}

// Normalize 归一化配置并填充默认值
func (c *Config) Normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.CallbackURL = strings.TrimSpace(c.CallbackURL)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.BaseURL == "" {
		c.BaseURL = "https://api.paystack.co"
	}
	if c.Currency == "" {
		c.Currency = "NGN"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 15000
	}
}

// Sign 对原始报文体计算 HMAC-SHA512 十六进制签名
func Sign(cfg *Config, body []byte) string {
	mac := hmac.New(sha512.New, []byte(cfg.SecretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验 webhook 签名
// 必须对收到的原始字节计算，任何改写（重排、转义、空白）都会导致校验失败。
// 比较使用常数时间算法。
func VerifySignature(cfg *Config, body []byte, signature string) error {
	if cfg == nil || strings.TrimSpace(cfg.SecretKey) == "" {
		return ErrConfigInvalid
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrSignatureInvalid
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha512.New, []byte(cfg.SecretKey))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}
	return nil
}

// ParseWebhook 解析 webhook 事件（只在签名校验通过后调用）
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	if len(body) == 0 {
		return nil, ErrResponseInvalid
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(event.Event) == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}
	return &event, nil
}

// VerifyTransaction 主动查询交易结果
func VerifyTransaction(ctx context.Context, cfg *Config, reference string) (*TransactionData, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrConfigInvalid)
	}

	endpoint := cfg.BaseURL + "/transaction/verify/" + url.PathEscape(reference)
	respBytes, statusCode, err := doJSON(ctx, cfg, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    TransactionData `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if statusCode == http.StatusNotFound || (!resp.Status && strings.Contains(strings.ToLower(resp.Message), "not found")) {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, reference)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	if resp.Data.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference in response", ErrResponseInvalid)
	}
	return &resp.Data, nil
}

// InitializeTransaction 发起收款交易，返回收银台跳转地址
func InitializeTransaction(ctx context.Context, cfg *Config, input InitializeInput) (*InitializeResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Email) == "" || input.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: email and amount are required", ErrConfigInvalid)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = cfg.Currency
	}
	callbackURL := strings.TrimSpace(input.CallbackURL)
	if callbackURL == "" {
		callbackURL = cfg.CallbackURL
	}

	params := map[string]interface{}{
		"email":    input.Email,
		"amount":   input.AmountMinor,
		"currency": currency,
	}
	if input.Reference != "" {
		params["reference"] = input.Reference
	}
	if callbackURL != "" {
		params["callback_url"] = callbackURL
	}

	endpoint := cfg.BaseURL + "/transaction/initialize"
	respBytes, _, err := doJSON(ctx, cfg, http.MethodPost, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Status  bool             `json:"status"`
		Message string           `json:"message"`
		Data    InitializeResult `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	if resp.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization_url", ErrResponseInvalid)
	}
	return &resp.Data, nil
}

// IsSuccess 判断交易数据是否为成功入账
func (d *TransactionData) IsSuccess() bool {
	return d != nil && strings.EqualFold(d.Status, TxStatusSuccess)
}

func doJSON(ctx context.Context, cfg *Config, method, endpoint string, params map[string]interface{}) ([]byte, int, error) {
	var reader io.Reader
	if params != nil {
		body, err := json.Marshal(params)
		if err != nil {
			return nil, 0, err
		}
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	// 404 带响应体（reference 不存在），留给调用方判定
	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return respBytes, resp.StatusCode, nil
}
