package admin

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/gin-gonic/gin"
)

// CreatePayoutRequest 创建结算单请求
type CreatePayoutRequest struct {
	VendorID uint   `json:"vendor_id" binding:"required"`
	Notes    string `json:"notes"`
}

// PayoutActionRequest 结算单流转请求
type PayoutActionRequest struct {
	TransferReference string `json:"transfer_reference"`
	Reason            string `json:"reason"`
}

// ListPayouts 结算单列表
func (h *Handler) ListPayouts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.PayoutService.List(repository.PayoutListFilter{
		Page:     page,
		PageSize: pageSize,
		VendorID: scopedVendorQuery(c),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// GetPayout 结算单详情
func (h *Handler) GetPayout(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	payout, err := h.PayoutService.Get(id, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, payout)
}

// CreatePayout 汇总商家已审核佣金生成结算单
func (h *Handler) CreatePayout(c *gin.Context) {
	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	payout, err := h.PayoutService.Create(c.Request.Context(), req.VendorID, actorOf(c), req.Notes)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Created(c, payout)
}

// PayoutAction 结算单流转：process / complete / fail / cancel
func (h *Handler) PayoutAction(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req PayoutActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handlershared.RespondBadRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	actor := actorOf(c)
	var (
		payout *models.Payout
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(c.Param("action"))) {
	case "process":
		payout, err = h.PayoutService.Process(ctx, id, actor)
	case "complete":
		payout, err = h.PayoutService.Complete(ctx, id, strings.TrimSpace(req.TransferReference), actor)
	case "fail":
		payout, err = h.PayoutService.Fail(ctx, id, strings.TrimSpace(req.Reason), actor)
	case "cancel":
		payout, err = h.PayoutService.Cancel(ctx, id, strings.TrimSpace(req.Reason), actor)
	default:
		response.NotFound(c, "payout action not found")
		return
	}
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, payout)
}
