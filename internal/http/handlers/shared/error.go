package shared

import (
	"errors"

	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// mappedStatus 哨兵错误到 HTTP 状态码的映射。
type mappedStatus struct {
	target error
	status int
}

// statusOverrides 优先于按类别映射的规则。
var statusOverrides = []mappedStatus{
	{target: service.ErrInvalidCredentials, status: response.CodeUnauthorized},
	{target: service.ErrWebhookSignatureInvalid, status: response.CodeUnauthorized},
	{target: service.ErrWebhookTimestampExpired, status: response.CodeUnauthorized},
	{target: service.ErrWebhookBusy, status: response.CodeServiceUnavailable},
	{target: service.ErrOrderAlreadyPaid, status: response.CodeConflict},
	{target: service.ErrEmailExists, status: response.CodeConflict},
	{target: service.ErrSlugExists, status: response.CodeConflict},
	{target: service.ErrPaymentGatewayFailed, status: response.CodeServiceUnavailable},
	{target: service.ErrOrderTotalsMismatch, status: response.CodeInternal},
}

var kindStatus = map[string]int{
	service.KindValidation: response.CodeBadRequest,
	service.KindNotFound:   response.CodeNotFound,
	service.KindPermission: response.CodeForbidden,
	service.KindInventory:  response.CodeConflict,
	service.KindOrder:      response.CodeConflict,
	service.KindPayment:    response.CodeUnprocessable,
}

// StatusForError 返回领域错误对应的 HTTP 状态码，非领域错误视为 500。
func StatusForError(err error) int {
	for _, rule := range statusOverrides {
		if errors.Is(err, rule.target) {
			return rule.status
		}
	}
	if de, ok := service.AsDomainError(err); ok {
		if status, ok := kindStatus[de.Kind]; ok {
			return status
		}
	}
	return response.CodeInternal
}

// ToAppError 将任意错误转换为接口错误。
func ToAppError(err error) *response.AppError {
	status := StatusForError(err)
	if de, ok := service.AsDomainError(err); ok {
		return &response.AppError{
			Status:  status,
			Code:    de.Code,
			Message: de.Message,
			Details: de.Details,
			Err:     err,
		}
	}
	return response.WrapError(status, "internal_error", "internal server error", err)
}

// RespondError 输出错误响应，5xx 记录错误日志，4xx 仅记录 debug。
func RespondError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	log := RequestLog(c)
	if appErr.Status >= response.CodeInternal {
		log.Errorw("handler_error",
			"status", appErr.Status,
			"code", appErr.Code,
			"path", c.FullPath(),
			"error", err,
		)
	} else {
		log.Debugw("handler_rejected",
			"status", appErr.Status,
			"code", appErr.Code,
			"path", c.FullPath(),
		)
	}
	response.Fail(c, appErr)
}

// RespondBadRequest 请求参数解析失败。
func RespondBadRequest(c *gin.Context, err error) {
	appErr := response.WrapError(response.CodeBadRequest, "bad_request", "invalid request", err)
	if err != nil {
		appErr.Details = map[string]interface{}{"reason": err.Error()}
	}
	response.Fail(c, appErr)
}
