package shared

import (
	"strconv"
	"strings"

	"github.com/modaplex/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 认证中间件写入上下文的键
const (
	CtxUserID   = "user_id"
	CtxUserType = "user_type"
	CtxRole     = "role"
	CtxVendorID = "vendor_id" // 商家账号所属商家，非商家账号为 0
)

// 购物车会话标识的传递方式
const (
	CartSessionHeader = "X-Cart-Session"
	CartSessionCookie = "cart_session"
)

// GetContextUint 从上下文读取 uint 值，缺失时输出 401。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, "unauthorized")
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			response.BadRequest(c, key+" invalid")
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			response.BadRequest(c, key+" invalid")
			return 0, false
		}
		return uint(v), true
	default:
		response.Error(c, response.CodeInternal, "context_type_invalid", key+" type invalid")
		return 0, false
	}
}

// GetUserID 当前登录用户 ID。
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, CtxUserID)
}

// GetUserType 当前登录用户类型。
func GetUserType(c *gin.Context) string {
	return c.GetString(CtxUserType)
}

// GetRole 当前登录用户角色。
func GetRole(c *gin.Context) string {
	return c.GetString(CtxRole)
}

// ScopeVendorID 当前请求的商家范围，0 表示平台视角。
func ScopeVendorID(c *gin.Context) uint {
	value, ok := c.Get(CtxVendorID)
	if !ok {
		return 0
	}
	if id, ok := value.(uint); ok {
		return id
	}
	return 0
}

// ParseIDParam 解析路径中的数字 ID，失败时输出 400。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, name+" invalid")
		return 0, false
	}
	return uint(id), true
}

// QueryUint 读取可选的数字查询参数，非法值按 0 处理。
func QueryUint(c *gin.Context, name string) uint {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
