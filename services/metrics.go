package services

import (
	"context"
	"time"

	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	"go.uber.org/zap"
)

// metricsSink tolerates a nil or disabled recorder.
type metricsSink struct {
	recorder awspkg.MetricsRecorder
	logger   *zap.Logger
}

func (m metricsSink) count(ctx context.Context, name string, dims map[string]string) {
	if m.recorder == nil || !m.recorder.IsEnabled() {
		return
	}
	if err := m.recorder.RecordCount(ctx, name, dims); err != nil {
		m.logger.Debug("Failed to record metric", zap.String("metric", name), zap.Error(err))
	}
}

func (m metricsSink) latency(ctx context.Context, name string, d time.Duration, dims map[string]string) {
	if m.recorder == nil || !m.recorder.IsEnabled() {
		return
	}
	if err := m.recorder.RecordLatency(ctx, name, d, dims); err != nil {
		m.logger.Debug("Failed to record metric", zap.String("metric", name), zap.Error(err))
	}
}
