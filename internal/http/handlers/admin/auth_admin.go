package admin

import (
	"time"

	"github.com/modaplex/internal/authz"
	"github.com/modaplex/internal/constants"
	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/models"

	"github.com/gin-gonic/gin"
)

// LoginRequest 后台登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 后台登录返回
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	VendorID  uint         `json:"vendor_id,omitempty"`
}

// Login 后台登录，顾客账号不可登录后台
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}

	user, token, expiresAt, err := h.AuthService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	if user.UserType == constants.UserTypeCustomer {
		response.Forbidden(c, "customer accounts cannot sign in to the back office")
		return
	}

	resp := LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}
	if user.UserType == constants.UserTypeVendor {
		vendor, err := h.VendorService.GetByUserID(user.ID)
		if err != nil {
			handlershared.RespondError(c, err)
			return
		}
		resp.VendorID = vendor.ID
	}
	handlershared.RequestLog(c).Infow("admin_login", "user_id", user.ID, "user_type", user.UserType)
	response.Success(c, resp)
}

// GetMe 当前后台账号与权限
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := handlershared.GetUserID(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetUserByID(userID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	policies, err := h.AuthzService.GetUserPolicies(authz.Principal{
		UserID:   userID,
		UserType: user.UserType,
		Role:     handlershared.GetRole(c),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":      user,
		"vendor_id": handlershared.ScopeVendorID(c),
		"policies":  policies,
	})
}
