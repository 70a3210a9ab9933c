package public

import (
	"io"
	"net/http"
	"strings"

	"github.com/nairamart-next/internal/paystack"
	"github.com/nairamart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaystackWebhook Paystack webhook 回调。
// 签名必须基于原始请求字节校验，任何重新序列化都可能破坏签名。
// 对账结论一律返回 200，网关据此停止重投；只有签名或报文本身的问题才拒绝。
func (h *Handler) PaystackWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("paystack_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	signature := strings.TrimSpace(c.GetHeader(paystack.SignatureHeader))
	if err := paystack.VerifySignature(h.PaystackCfg, body, signature); err != nil {
		log.Warnw("paystack_webhook_signature_invalid",
			"client_ip", c.ClientIP(),
			"body_size", len(body),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := paystack.ParseWebhook(body)
	if err != nil {
		log.Warnw("paystack_webhook_payload_invalid", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if event.Event != paystack.EventChargeSuccess {
		log.Infow("paystack_webhook_event_ignored", "event", event.Event)
		c.JSON(http.StatusOK, gin.H{"accepted": true, "ignored": true})
		return
	}

	outcome, err := h.ReconcileService.Reconcile(c.Request.Context(), service.EventFromTransaction(&event.Data))
	if err != nil {
		// 网关会重投，这里返回 500 让它稍后再来
		log.Errorw("paystack_webhook_reconcile_failed",
			"reference", event.Data.Reference,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}

	log.Infow("paystack_webhook_processed",
		"reference", event.Data.Reference,
		"result", outcome.Result,
		"action", outcome.Action,
	)
	c.JSON(http.StatusOK, gin.H{
		"accepted": true,
		"result":   outcome.Result,
	})
}
