package application

import (
	"context"

	"github.com/wyfcoding/clientonboarding/pkg/logger"
)

// RoutingWorker 自动分派工作者，消费服务内部的分派队列。
// 分派是 fire-and-forget 语义：失败只记日志，不重试，申请保持未分派状态。
type RoutingWorker struct {
	service *OnboardingService
}

// NewRoutingWorker 构造分派工作者
func NewRoutingWorker(service *OnboardingService) *RoutingWorker {
	return &RoutingWorker{service: service}
}

// Run 持续消费分派队列，ctx 取消后退出
func (w *RoutingWorker) Run(ctx context.Context) {
	logger.Info(ctx, "Routing worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Routing worker stopped")
			return
		case requestID := <-w.service.routingQueue:
			if w.service.collector != nil {
				w.service.collector.UpdateRoutingQueueDepth(len(w.service.routingQueue))
			}
			if err := w.service.routeRequest(ctx, requestID); err != nil {
				logger.Error(ctx, "Failed to route request", "request_id", requestID, "error", err)
				if w.service.collector != nil {
					w.service.collector.RecordRoutingFailure()
				}
			}
		}
	}
}
