package public

import (
	"net/http"
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// UpdateCartItemRequest 修改购物车数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// cartSession 读取购物车会话，优先请求头，其次 Cookie
func cartSession(c *gin.Context) string {
	if session := strings.TrimSpace(c.GetHeader(handlershared.CartSessionHeader)); session != "" {
		return session
	}
	if session, err := c.Cookie(handlershared.CartSessionCookie); err == nil {
		return strings.TrimSpace(session)
	}
	return ""
}

// ensureCartSession 缺失时签发新的会话并回写到 Cookie 与响应头
func (h *Handler) ensureCartSession(c *gin.Context) string {
	session := cartSession(c)
	if session == "" {
		session = service.NewSessionKey()
	}
	maxAge := h.Config.Cart.SessionCookieMaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * 3600
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(handlershared.CartSessionCookie, session, maxAge, "/", "", false, true)
	c.Header(handlershared.CartSessionHeader, session)
	return session
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	session := h.ensureCartSession(c)
	view, err := h.CartService.Get(session)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	session := h.ensureCartSession(c)
	view, err := h.CartService.AddItem(c.Request.Context(), service.AddCartItemInput{
		SessionKey: session,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Size:       strings.TrimSpace(req.Size),
		Color:      strings.TrimSpace(req.Color),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateCartItem 修改购物车项数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	itemID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	session := h.ensureCartSession(c)
	view, err := h.CartService.UpdateItem(c.Request.Context(), session, itemID, req.Quantity)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, view)
}

// RemoveCartItem 删除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	itemID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	session := h.ensureCartSession(c)
	view, err := h.CartService.RemoveItem(c.Request.Context(), session, itemID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, view)
}
