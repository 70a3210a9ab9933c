package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nairamart-next/internal/authz"
	"github.com/nairamart-next/internal/cache"
	"github.com/nairamart-next/internal/config"
	adminhandlers "github.com/nairamart-next/internal/http/handlers/admin"
	publichandlers "github.com/nairamart-next/internal/http/handlers/public"
	"github.com/nairamart-next/internal/http/response"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 装配全部 HTTP 路由，前台与后台各挂一套中间件链
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	loginRule := loginRateRule(cfg, "rate:login")
	adminLoginRule := loginRateRule(cfg, "rate:admin_login")

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 网关回调（签名校验在 Handler 内完成，不走 JWT）
		apiV1.POST("/payments/webhook/paystack", publicHandler.PaystackWebhook)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/profile", publicHandler.UpdateUserProfile)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)

			user.GET("/wallet", publicHandler.GetMyWallet)
			user.GET("/wallet/transactions", publicHandler.GetMyWalletTransactions)
			user.POST("/wallet/fund", publicHandler.FundWallet)
			user.GET("/wallet/verify", publicHandler.VerifyFunding)

			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/pay", publicHandler.PayOrder)
			user.POST("/orders/:id/pay-wallet", publicHandler.PayOrderWithWallet)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)

			user.POST("/wallet/topups", publicHandler.CreateTopup)
			user.GET("/wallet/topups", publicHandler.ListTopups)
			user.GET("/wallet/topups/:id", publicHandler.GetTopup)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 对账台账
				authorized.GET("/payment-references", adminHandler.ListPaymentReferences)
				authorized.GET("/reconcile-alerts", adminHandler.ListReconcileAlerts)
				authorized.POST("/reconcile-alerts/:id/resolve", adminHandler.ResolveReconcileAlert)
				authorized.POST("/wallet/manual-credit", adminHandler.ManualCredit)
				authorized.POST("/wallet/manual-debit", adminHandler.ManualDebit)

				// 订单管理
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.PATCH("/orders/:id", adminHandler.AdminUpdateOrderStatus)

				// 话费/流量工单
				authorized.GET("/topups", adminHandler.AdminListTopups)
				authorized.POST("/topups/:id/processing", adminHandler.AdminMarkTopupProcessing)
				authorized.POST("/topups/:id/complete", adminHandler.AdminCompleteTopup)
				authorized.POST("/topups/:id/fail", adminHandler.AdminFailTopup)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PUT("/users/:id/status", adminHandler.UpdateAdminUserStatus)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

// loginRateRule 登录接口的限流规则，前后台共用一组阈值
func loginRateRule(cfg *config.Config, suffix string) RateLimitRule {
	prefix := strings.TrimSpace(cfg.Redis.Prefix)
	if prefix == "" {
		prefix = "nm"
	}
	return RateLimitRule{
		Prefix:        fmt.Sprintf("%s:%s", prefix, suffix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts, retry in %d seconds",
	}
}

// adminPermissionCatalogItem 权限目录项，前端按 module 分组展示
type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 扫注册表生成可授权的管理端权限清单，
// 登录接口和预检方法不进目录
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, route := range routes {
		method := strings.ToUpper(strings.TrimSpace(route.Method))
		switch {
		case method == "" || method == "OPTIONS" || method == "HEAD":
			continue
		case !strings.HasPrefix(route.Path, "/api/v1/admin/"):
			continue
		case route.Path == "/api/v1/admin/login":
			continue
		}
		object := authz.NormalizeObject(route.Path)
		permission := method + ":" + object
		if _, dup := seen[permission]; dup {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     permissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module != items[j].Module {
			return items[i].Module < items[j].Module
		}
		if items[i].Object != items[j].Object {
			return items[i].Object < items[j].Object
		}
		return items[i].Method < items[j].Method
	})

	return items
}

// permissionModule 取路径第二段作为模块名，/admin/topups/:id 归于 topups
func permissionModule(object string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if trimmed == "" {
		return "system"
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
