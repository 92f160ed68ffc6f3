package admin

import (
	"net/url"
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/logger"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetUserRolesPayload struct {
	Roles []string `json:"roles"`
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	logger.Infow("admin_authz_role_created", "actor", actorOf(c), "role", role)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		response.BadRequest(c, "role required")
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	logger.Infow("admin_authz_role_deleted", "actor", actorOf(c), "role", role)
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		response.BadRequest(c, "role required")
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	logger.Infow("admin_authz_policy_granted",
		"actor", actorOf(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	logger.Infow("admin_authz_policy_revoked",
		"actor", actorOf(c),
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	response.Success(c, nil)
}

// GetAuthzUserRoles 获取账号额外授予的角色
func (h *Handler) GetAuthzUserRoles(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetUserRoles(userID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": userID, "roles": roles})
}

// SetAuthzUserRoles 覆盖账号额外授予的角色
func (h *Handler) SetAuthzUserRoles(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.AuthService.GetUserByID(userID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	var req authzSetUserRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	if err := h.AuthzService.SetUserRoles(userID, user.UserType, req.Roles); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	logger.Infow("admin_authz_user_roles_updated", "actor", actorOf(c), "user_id", userID, "roles", req.Roles)
	response.Success(c, nil)
}

func decodeRoleParam(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}
