package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/provider"
)

const (
	commissionApproveInterval = time.Hour
	dailyReportInterval       = time.Hour
	reportRollupInterval      = 24 * time.Hour
	cartSweepInterval         = 30 * time.Minute
)

// periodicJob 周期任务
type periodicJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context, now time.Time) error
}

// Scheduler 周期任务服务：佣金自动审核、报表汇总、废弃购物车清理
// 多实例部署时通过 Redis 锁保证同一时刻只有一个实例执行
type Scheduler struct {
	name string
	jobs []periodicJob
	now  func() time.Time
	wg   sync.WaitGroup
}

// NewScheduler 创建周期任务服务
func NewScheduler(c *provider.Container) (*Scheduler, error) {
	if c == nil {
		return nil, errors.New("container is nil")
	}
	s := &Scheduler{name: "scheduler", now: time.Now}
	if c.CommissionService != nil {
		s.jobs = append(s.jobs, periodicJob{
			name:     "commission_approve",
			interval: commissionApproveInterval,
			run: func(ctx context.Context, now time.Time) error {
				approved, err := c.CommissionService.ApproveDue(ctx, now)
				if err == nil && approved > 0 {
					logger.Infow("scheduler_commission_approved", "count", approved)
				}
				return err
			},
		})
	}
	if c.SalesReportService != nil {
		s.jobs = append(s.jobs, periodicJob{
			name:     "sales_report_daily",
			interval: dailyReportInterval,
			run: func(ctx context.Context, now time.Time) error {
				for _, date := range []time.Time{now.AddDate(0, 0, -1), now} {
					if _, err := c.SalesReportService.Generate(ctx, constants.ReportTypeDaily, date); err != nil {
						return err
					}
				}
				return nil
			},
		}, periodicJob{
			name:     "sales_report_rollup",
			interval: reportRollupInterval,
			run:      c.SalesReportService.GenerateRollups,
		})
	}
	abandonedAfter := time.Duration(0)
	if c.Config != nil {
		abandonedAfter = time.Duration(c.Config.Cart.AbandonedAfterHours) * time.Hour
	}
	if c.CartService != nil && abandonedAfter > 0 {
		s.jobs = append(s.jobs, periodicJob{
			name:     "cart_sweep",
			interval: cartSweepInterval,
			run: func(ctx context.Context, now time.Time) error {
				_, err := c.CartService.SweepAbandoned(ctx, now, abandonedAfter)
				return err
			},
		})
	}
	return s, nil
}

// Name 服务名称
func (s *Scheduler) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 启动全部周期任务，阻塞至 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("scheduler not initialized")
	}
	for _, job := range s.jobs {
		job := job
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, job)
		}()
	}
	<-ctx.Done()
	s.wg.Wait()
	return nil
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, job periodicJob) {
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce 获取任务锁后执行一次，锁被占用时跳过本轮
func (s *Scheduler) runOnce(ctx context.Context, job periodicJob) bool {
	lock, ok, err := cache.TryLock(ctx, "scheduler:"+job.name, job.interval)
	if err != nil {
		logger.Warnw("scheduler_lock_failed", "job", job.name, "error", err)
		return false
	}
	if !ok {
		logger.Debugw("scheduler_skip_locked", "job", job.name)
		return false
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			logger.Warnw("scheduler_unlock_failed", "job", job.name, "error", err)
		}
	}()

	start := time.Now()
	if err := job.run(ctx, s.now().UTC()); err != nil {
		logger.Warnw("scheduler_job_failed", "job", job.name, "error", err)
		return false
	}
	logger.Debugw("scheduler_job_done", "job", job.name, "elapsed_ms", time.Since(start).Milliseconds())
	return true
}
