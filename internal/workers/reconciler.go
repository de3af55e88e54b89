package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/ingest"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/queue"
	"github.com/whizardlm/whizard-api/internal/services/ai"
)

// Reconciler repairs the relational side of a two-phase ingest write.
// The vector index is written first and is idempotent; when the follow-up
// relational write fails, the pipeline enqueues a reconcile job and this
// worker retries it until it sticks or retries run out.
type Reconciler struct {
	topicRepo  database.TopicStore
	sourceRepo database.SourceStore
	jobQueue   queue.JobQueue // For re-enqueueing jobs with delays
}

// NewReconciler creates a new reconciler
func NewReconciler(topicRepo database.TopicStore, sourceRepo database.SourceStore, jobQueue queue.JobQueue) *Reconciler {
	return &Reconciler{
		topicRepo:  topicRepo,
		sourceRepo: sourceRepo,
		jobQueue:   jobQueue,
	}
}

// ProcessReconcileTopicsJob merges the job's topics into the project's
// current set. A later ingest may have written a newer set between the
// original failure and this replay, so the job payload is merged into
// whatever is stored now instead of overwriting it.
func (r *Reconciler) ProcessReconcileTopicsJob(ctx context.Context, job *queue.Job) error {
	if job.ProjectID == nil {
		return fmt.Errorf("project_id is required for reconcile_topics job")
	}
	if len(job.Topics) == 0 {
		return fmt.Errorf("topics payload is required for reconcile_topics job")
	}

	scope := models.NewScope(job.UserID)

	var existing []string
	current, err := r.topicRepo.Read(ctx, scope, *job.ProjectID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to read current topics: %w", err)
	}
	if current != nil {
		existing = current.Topics
	}

	merged := ingest.MergeTopics(existing, job.Topics)
	if err := r.topicRepo.Write(ctx, scope, *job.ProjectID, merged); err != nil {
		return fmt.Errorf("failed to reconcile topics: %w", err)
	}

	log.Printf("Reconciled %d topics for project %s (user %s)", len(merged), job.ProjectID, job.UserID)
	return nil
}

// ProcessReconcileSourceJob re-inserts a source row that failed to persist
// after its chunks had already landed in the vector index. The source fields
// travel in the job metadata; Create is an upsert by id so replays are safe.
func (r *Reconciler) ProcessReconcileSourceJob(ctx context.Context, job *queue.Job) error {
	if job.ProjectID == nil {
		return fmt.Errorf("project_id is required for reconcile_source job")
	}

	source, err := sourceFromMetadata(job)
	if err != nil {
		return fmt.Errorf("invalid reconcile_source payload: %w", err)
	}

	scope := models.NewScope(job.UserID)
	if err := r.sourceRepo.Create(ctx, scope, source); err != nil {
		return fmt.Errorf("failed to reconcile source: %w", err)
	}

	log.Printf("Reconciled source %s (%s) for project %s", source.ID, source.Name, job.ProjectID)
	return nil
}

// sourceFromMetadata rebuilds a Source from the job's metadata map
func sourceFromMetadata(job *queue.Job) (*models.Source, error) {
	idStr, ok := job.Metadata["source_id"].(string)
	if !ok {
		return nil, fmt.Errorf("source_id missing or not a string")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("source_id is not a valid uuid: %w", err)
	}

	name, ok := job.Metadata["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("name missing or not a string")
	}

	typeStr, ok := job.Metadata["type"].(string)
	if !ok {
		return nil, fmt.Errorf("type missing or not a string")
	}

	source := &models.Source{
		ID:        id,
		UserID:    job.UserID,
		ProjectID: *job.ProjectID,
		Name:      name,
		Type:      models.SourceType(typeStr),
		CreatedAt: job.CreatedAt,
	}
	if url, ok := job.Metadata["url"].(string); ok && url != "" {
		source.URL = &url
	}
	if content, ok := job.Metadata["content"].(string); ok && content != "" {
		source.Content = &content
	}
	return source, nil
}

// ProcessJob processes a job based on its type
func (r *Reconciler) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeReconcileTopics:
		if err := r.ProcessReconcileTopicsJob(ctx, job); err != nil {
			return r.handleJobError(ctx, msg, job, err, "topic reconcile")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeReconcileSource:
		if err := r.ProcessReconcileSourceJob(ctx, job); err != nil {
			return r.handleJobError(ctx, msg, job, err, "source reconcile")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs with backoff, re-enqueueing through the
// delayed exchange when the queue is available.
func (r *Reconciler) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error, jobType string) error {
	if job.CanRetry() && r.jobQueue != nil {
		retryDelay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			UserID:     job.UserID,
			ProjectID:  job.ProjectID,
			Topics:     job.Topics,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if enqueueErr := r.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			log.Printf("Failed to re-enqueue %s job %s: %v", jobType, job.ID, enqueueErr)
			return fmt.Errorf("%s failed, re-enqueue failed: %w", jobType, enqueueErr)
		}

		log.Printf("%s job %s failed (attempt %d/%d): %v, retrying at %v",
			jobType, job.ID, job.RetryCount+1, job.MaxRetries, err, notBefore)
		return nil
	}

	// Fallback: nack with requeue while retries remain
	if job.CanRetry() {
		job.IncrementRetry()
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("%s failed (will retry): %w", jobType, err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("%s failed (max retries): %w", jobType, err)
}
