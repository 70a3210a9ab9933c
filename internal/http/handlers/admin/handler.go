package admin

import "github.com/nairamart-next/internal/provider"

// Handler 管理端 API 入口，运营后台的对账、工单与权限管理都挂在这里
type Handler struct {
	*provider.Container
}

func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
