// Package expiry は期限切れ依頼の定期スイープジョブを提供する。
// 有効期限を過ぎたpendingの依頼をexpiredに遷移させ、
// あわせて期限切れのセッションを削除する。
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はスイープの既定の実行間隔。
const DefaultInterval = time.Hour

// RequestExpirer は期限切れ依頼の一括遷移を行うインターフェース。
type RequestExpirer interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionPurger は期限切れセッションの一括削除を行うインターフェース。
type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Recorder はスイープ結果を記録するメトリクスのインターフェース。
type Recorder interface {
	RecordRequestsExpired(source string, n int)
	RecordSessionsPurged(n int)
}

// SweepJob は期限切れ依頼とセッションの定期スイープジョブ。
// 1回の実行は単一のUPDATEとDELETEのみで、何度実行しても結果は変わらない。
type SweepJob struct {
	requests RequestExpirer
	sessions SessionPurger
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSweepJob は新しいSweepJobを生成する。
func NewSweepJob(requests RequestExpirer, sessions SessionPurger, recorder Recorder, logger *slog.Logger) *SweepJob {
	return &SweepJob{
		requests: requests,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce はスイープを1回実行する。
// 依頼の遷移に失敗した場合はセッション削除を行わずにエラーを返す。
func (j *SweepJob) RunOnce(ctx context.Context) error {
	start := time.Now()
	now := j.now().UTC()

	expired, err := j.requests.MarkExpired(ctx, now)
	if err != nil {
		j.logger.Error("期限切れ依頼の更新に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れ依頼の更新に失敗: %w", err)
	}
	if expired > 0 {
		j.recorder.RecordRequestsExpired("sweep", int(expired))
	}

	purged, err := j.sessions.DeleteExpired(ctx, now)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}
	if purged > 0 {
		j.recorder.RecordSessionsPurged(int(purged))
	}

	j.logger.Info("期限切れスイープが完了しました",
		slog.Int64("expired_requests", expired),
		slog.Int64("purged_sessions", purged),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はスイープをintervalごとに実行する。ctxがキャンセルされるまでブロックする。
func (j *SweepJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("期限切れスイープを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("期限切れスイープの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("期限切れスイープを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("期限切れスイープの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
