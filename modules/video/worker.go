package video

import (
	"context"
	"time"
)

// SweepInterval - how often timed-out generations are failed
const SweepInterval = time.Minute

// StartTimeoutSweeper - fail stuck generations until ctx is cancelled
func StartTimeoutSweeper(ctx context.Context, service *Service, interval time.Duration) {
	log.Infof("⏱️ Timeout sweeper started (every %s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("🛑 Timeout sweeper stopped")
			return
		case <-ticker.C:
			n, err := service.SweepTimeouts(ctx)
			if err != nil {
				log.Errorf("❌ Timeout sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Warnf("⏱️ %d video(s) timed out", n)
			}
		}
	}
}
