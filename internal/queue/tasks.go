package queue

import (
	"encoding/json"

	"github.com/modaplex/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionGenerate 佣金生成任务
	TaskCommissionGenerate = constants.TaskCommissionGenerate
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskSalesReportGenerate 销售报表生成任务
	TaskSalesReportGenerate = constants.TaskSalesReportGenerate
)

// CommissionGeneratePayload 佣金生成任务载荷
type CommissionGeneratePayload struct {
	OrderID uint `json:"order_id"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// SalesReportGeneratePayload 销售报表任务载荷，Date 为 2006-01-02 格式的周期内任意日期
type SalesReportGeneratePayload struct {
	ReportType string `json:"report_type"`
	Date       string `json:"date"`
}

// NewCommissionGenerateTask 创建佣金生成任务
func NewCommissionGenerateTask(payload CommissionGeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionGenerate, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewSalesReportGenerateTask 创建销售报表任务
func NewSalesReportGenerateTask(payload SalesReportGeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesReportGenerate, body), nil
}
