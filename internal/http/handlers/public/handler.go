package public

import "github.com/nairamart-next/internal/provider"

// Handler 面向买家的 API 入口，含网关 webhook 回调
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
