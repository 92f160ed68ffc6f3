package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/provider"
	"github.com/modaplex/internal/queue"
	"github.com/modaplex/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionGenerate, c.handleCommissionGenerate)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskSalesReportGenerate, c.handleSalesReportGenerate)
}

func (c *Consumer) handleCommissionGenerate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_generate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_generate_unmarshal_failed", "error", err)
		return skipRetry(err)
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_generate_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_generate_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	created, err := c.CommissionService.GenerateForOrder(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_commission_generate_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_commission_generate_failed", "order_id", payload.OrderID, "error", err)
		return retryable(err)
	}
	logger.Debugw("worker_commission_generate_done", "order_id", payload.OrderID, "created", created)
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return skipRetry(err)
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	cancelled, err := c.OrderService.CancelExpiredOrder(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return retryable(err)
	}
	if !cancelled {
		logger.Debugw("worker_order_timeout_cancel_skip_not_due", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handleSalesReportGenerate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sales_report_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SalesReportGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_sales_report_unmarshal_failed", "error", err)
		return skipRetry(err)
	}
	if c.SalesReportService == nil {
		logger.Warnw("worker_sales_report_skip_service_nil", "report_type", payload.ReportType)
		return nil
	}
	date, err := service.ParseReportDate(payload.Date)
	if err != nil {
		logger.Warnw("worker_sales_report_invalid_date", "date", payload.Date, "error", err)
		return skipRetry(err)
	}
	reports, err := c.SalesReportService.Generate(ctx, payload.ReportType, date)
	if err != nil {
		logger.Warnw("worker_sales_report_failed", "report_type", payload.ReportType, "date", payload.Date, "error", err)
		return retryable(err)
	}
	logger.Debugw("worker_sales_report_done", "report_type", payload.ReportType, "date", payload.Date, "rows", len(reports))
	return nil
}

// retryable 领域错误不再重试，其余错误交给 asynq 重试
func retryable(err error) error {
	if err == nil || service.IsRetryable(err) {
		return err
	}
	return skipRetry(err)
}

func skipRetry(err error) error {
	return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
}
