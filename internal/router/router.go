package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modaplex/internal/authz"
	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	adminhandlers "github.com/modaplex/internal/http/handlers/admin"
	publichandlers "github.com/modaplex/internal/http/handlers/public"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mp"
	}
	redisClient := cache.Client()
	loginRule := RuleFromConfig(fmt.Sprintf("%s:rate:login", redisPrefix), cfg.Security.LoginRateLimit)
	adminLoginRule := RuleFromConfig(fmt.Sprintf("%s:rate:admin_login", redisPrefix), cfg.Security.LoginRateLimit)
	cartRule := RuleFromConfig(fmt.Sprintf("%s:rate:cart", redisPrefix), cfg.Security.CartRateLimit)
	cartLimit := RateLimitMiddleware(redisClient, cartRule, KeyByCartSession)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	// 健康检查
	r.GET("/health", publicHandler.Health)

	apiV1 := r.Group("/api/v1")
	{
		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 商品浏览
		apiV1.GET("/products", publicHandler.ListProducts)
		apiV1.GET("/products/:slug", publicHandler.GetProductBySlug)

		// 购物车（按会话）
		cart := apiV1.Group("/cart")
		{
			cart.GET("", publicHandler.GetCart)
			cart.POST("/items", cartLimit, publicHandler.AddCartItem)
			cart.PATCH("/items/:id", cartLimit, publicHandler.UpdateCartItem)
			cart.DELETE("/items/:id", cartLimit, publicHandler.RemoveCartItem)
		}

		// 支付网关回调
		apiV1.POST("/payments/webhook", publicHandler.PaymentWebhook)

		// 顾客接口（需鉴权）
		customer := apiV1.Group("")
		customer.Use(AuthMiddleware(c.AuthService, constants.UserTypeCustomer))
		{
			customer.GET("/me", publicHandler.GetMe)
			customer.POST("/orders", publicHandler.CreateOrder)
			customer.GET("/orders", publicHandler.ListOrders)
			customer.GET("/orders/:order_no", publicHandler.GetOrder)
			customer.POST("/orders/:order_no/pay", publicHandler.PayOrder)
		}

		// 后台接口（平台员工与商家）
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("email")), adminHandler.Login)

			authorized := admin.Group("")
			authorized.Use(
				AuthMiddleware(c.AuthService, constants.UserTypeAdmin, constants.UserTypeStaff, constants.UserTypeVendor),
				RBACMiddleware(c.AuthzService),
				VendorScopeMiddleware(c.VendorService),
			)
			{
				authorized.GET("/me", adminHandler.GetMe)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:id", adminHandler.GetOrder)
				authorized.GET("/orders/:id/history", adminHandler.GetOrderHistory)
				authorized.GET("/orders/:id/payments", adminHandler.GetOrderPayments)
				authorized.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)
				authorized.PATCH("/orders/:id/items/:item_id/status", adminHandler.UpdateItemStatus)
				authorized.PATCH("/orders/:id/items/:item_id/quantity", adminHandler.UpdateItemQuantity)
				authorized.PUT("/orders/:id/discount", adminHandler.SetOrderDiscount)
				authorized.POST("/orders/:id/recompute", adminHandler.RecomputeOrder)
				authorized.POST("/orders/:id/reconcile", adminHandler.ReconcileOrder)
				authorized.GET("/payments/webhooks/:transaction_id", adminHandler.GetWebhookDeliveries)

				// 佣金与结算
				authorized.GET("/commissions", adminHandler.ListCommissions)
				authorized.GET("/commissions/summary", adminHandler.GetCommissionSummary)
				authorized.POST("/commissions/approve", adminHandler.ApproveCommissions)
				authorized.GET("/payouts", adminHandler.ListPayouts)
				authorized.POST("/payouts", adminHandler.CreatePayout)
				authorized.GET("/payouts/:id", adminHandler.GetPayout)
				authorized.POST("/payouts/:id/:action", adminHandler.PayoutAction)

				// 销售报表
				authorized.GET("/reports", adminHandler.ListReports)
				authorized.POST("/reports/generate", adminHandler.GenerateReport)

				// 商家、品牌与商品
				authorized.GET("/vendors", adminHandler.ListVendors)
				authorized.POST("/vendors", adminHandler.CreateVendor)
				authorized.GET("/vendors/:id", adminHandler.GetVendor)
				authorized.PUT("/vendors/:id", adminHandler.UpdateVendor)
				authorized.GET("/brands", adminHandler.ListBrands)
				authorized.POST("/brands", adminHandler.CreateBrand)
				authorized.GET("/brands/:id", adminHandler.GetBrand)
				authorized.PUT("/brands/:id", adminHandler.UpdateBrand)
				authorized.GET("/products", adminHandler.ListProducts)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.GET("/products/:id", adminHandler.GetProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/users/:id/roles", adminHandler.GetAuthzUserRoles)
				authorized.PUT("/authz/users/:id/roles", adminHandler.SetAuthzUserRoles)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
