package drive

import (
	"context"
	"encoding/json"
	"time"
)

const (
	dequeueTimeout     = 5 * time.Second
	errorBackoff       = 5 * time.Second
	maxConcurrentSyncs = 2
)

// StartWorker - Redis Queue Worker 시작 (BRPOP jobs:drive-sync until ctx is cancelled)
func StartWorker(ctx context.Context, service *Service) {
	if service.queue == nil {
		log.Warn("⚠️ Drive sync worker not started: no queue")
		return
	}
	log.Infof("👀 Watching queue: %s", QueueName)

	slots := make(chan struct{}, maxConcurrentSyncs)
	for {
		payload, err := service.queue.Dequeue(ctx, dequeueTimeout)
		if ctx.Err() != nil {
			log.Info("🛑 Drive sync worker stopped")
			return
		}
		if err != nil {
			log.Errorf("❌ %v", err)
			time.Sleep(errorBackoff)
			continue
		}
		if payload == nil {
			continue
		}

		var job SyncJob
		if err := json.Unmarshal(payload, &job); err != nil {
			log.Errorf("❌ Dropping malformed sync job: %v", err)
			continue
		}

		slots <- struct{}{}
		go func() {
			defer func() { <-slots }()
			processJob(ctx, service, job)
		}()
	}
}

// processJob - one folder sync
func processJob(ctx context.Context, service *Service, job SyncJob) {
	log.Infof("🚀 Drive sync for team %s (folder: %s)", job.TeamID, job.FolderID)
	started := time.Now()

	result, err := service.Sync(ctx, job)
	if err != nil {
		log.Errorf("❌ Drive sync for team %s failed: %v", job.TeamID, err)
		return
	}

	log.Infof("✅ Drive sync for team %s done in %s: %d imported, %d skipped, %d failed",
		job.TeamID, time.Since(started).Round(time.Millisecond), result.Imported, result.Skipped, result.Failed)
}
