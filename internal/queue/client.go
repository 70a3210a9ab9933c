package queue

import (
	"fmt"
	"strings"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 未显式指定时任务落进的队列
const DefaultQueue = constants.QueueDefault

// Client asynq 客户端封装。队列未启用时所有入队调用都是空操作，
// 同步路径不因队列缺席而失败。
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(task *asynq.Task, err error, opts []asynq.Option) error {
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// EnqueueReconcileAlert 推送对账差异告警
func (c *Client) EnqueueReconcileAlert(payload ReconcileAlertPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewReconcileAlertTask(payload)
	return c.enqueue(task, err, opts)
}

// EnqueueTopupRequestDispatch 推送话费充值派发任务
func (c *Client) EnqueueTopupRequestDispatch(payload TopupRequestDispatchPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewTopupRequestDispatchTask(payload)
	return c.enqueue(task, err, opts)
}

// EnqueueWalletCreditNotify 推送钱包入账通知
func (c *Client) EnqueueWalletCreditNotify(payload WalletCreditNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewWalletCreditNotifyTask(payload)
	return c.enqueue(task, err, opts)
}

// BuildServerConfig 消费端的 Redis 连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
