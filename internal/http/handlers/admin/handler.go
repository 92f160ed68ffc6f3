package admin

import (
	"fmt"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 后台管理接口处理器入口
// 说明：平台员工与商家账号共用，商家账号的数据范围由 vendor_id 限定。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// actorOf 审计流水中的操作人标识，如 admin:1、vendor:7
func actorOf(c *gin.Context) string {
	userID, _ := c.Get(handlershared.CtxUserID)
	return fmt.Sprintf("%s:%v", handlershared.GetUserType(c), userID)
}
