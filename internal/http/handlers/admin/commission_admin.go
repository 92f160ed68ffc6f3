package admin

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/repository"

	"github.com/gin-gonic/gin"
)

// ApproveCommissionsRequest 批量审核佣金请求
type ApproveCommissionsRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// scopedVendorQuery 商家账号固定为本商家，平台账号可按 vendor_id 过滤
func scopedVendorQuery(c *gin.Context) uint {
	if vendorID := handlershared.ScopeVendorID(c); vendorID != 0 {
		return vendorID
	}
	return handlershared.QueryUint(c, "vendor_id")
}

// ListCommissions 佣金列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		VendorID: scopedVendorQuery(c),
		OrderID:  handlershared.QueryUint(c, "order_id"),
		PayoutID: handlershared.QueryUint(c, "payout_id"),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// GetCommissionSummary 佣金按状态汇总
func (h *Handler) GetCommissionSummary(c *gin.Context) {
	summary, err := h.CommissionService.Summary(scopedVendorQuery(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, summary)
}

// ApproveCommissions 批量审核佣金
func (h *Handler) ApproveCommissions(c *gin.Context) {
	var req ApproveCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	affected, err := h.CommissionService.Approve(c.Request.Context(), req.IDs, actorOf(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"approved": affected})
}
