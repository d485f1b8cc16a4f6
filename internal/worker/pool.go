package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

// Pool consumes tip-generation jobs queued at upload time, so study tips are
// usually cached before the user asks for sessions. Workers coordinate
// through Redis: BLPOP hands out jobs, SetNX locks keep two workers off the
// same job when it gets re-queued.
type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	jobRepo     *repository.JobRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, gemini *services.GeminiService, jobRepo *repository.JobRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, services.TipQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case "tip-generation":
			processErr = p.processTips(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processTips generates study tips for the deadline event carried in the job
// config and drops them into the per-session tip cache.
func (p *Pool) processTips(ctx context.Context, job *models.Job) error {
	var event models.CalendarEvent
	if err := json.Unmarshal(job.ConfigJSON, &event); err != nil {
		return fmt.Errorf("failed to parse job config: %w", err)
	}
	if event.Title == "" || event.Date == "" {
		return fmt.Errorf("job config is missing the deadline event")
	}

	key := services.TipCacheKey(job.SessionID, event.Title, event.Date)

	// Upload can enqueue the same deadline twice (cache hit re-uploads);
	// skip the Gemini call when tips already landed.
	if exists, err := p.redis.Exists(ctx, key).Result(); err == nil && exists > 0 {
		log.Printf("Tips already cached for %q, skipping generation", event.Title)
		return nil
	}

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     1,
			StepName: "Generating study tips",
		},
	})

	tips, err := p.gemini.GenerateStudyTips(ctx, event)
	if err != nil {
		return fmt.Errorf("tip generation failed: %w", err)
	}

	payload, err := json.Marshal(tips)
	if err != nil {
		return fmt.Errorf("failed to marshal tips: %w", err)
	}
	if err := p.redis.Set(ctx, key, payload, services.TipCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache tips: %w", err)
	}

	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	var event models.CalendarEvent
	json.Unmarshal(job.ConfigJSON, &event)

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "tips_ready",
		Payload: models.TipsReadyEvent{
			JobID:      job.ID,
			EventTitle: event.Title,
			EventDate:  event.Date,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), services.TipQueue, string(jobBytes))
		})
		return
	}

	// Max retries reached. The generate endpoint falls back to static tips,
	// so a permanently failed job degrades the plan, never blocks it.
	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
	p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

// publish fans a message out to the session's WebSocket connections via the
// hub's pub/sub channel.
func (p *Pool) publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, services.SessionChannel(sessionID), data)
}
