// Package queue implements admission and state transitions for asynchronous
// tool jobs over a shared Postgres store. Claiming relies on
// FOR UPDATE SKIP LOCKED so concurrent workers never receive the same job and
// never block each other.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetention   = 7 * 24 * time.Hour
)

// Queue is the single entry point for job lifecycle mutations. All state
// lives in the database; Queue itself is stateless and safe for concurrent use.
type Queue struct {
	sql    infra.SQLExecutor
	logger infra.Logger
}

func New(sql infra.SQLExecutor, logger infra.Logger) *Queue {
	return &Queue{sql: sql, logger: logger}
}

// SubmitParams describes a new job. Zero values for Priority, MaxAttempts and
// ExpiresAt fall back to the queue defaults.
type SubmitParams struct {
	ToolSlug    string
	Owner       domain.Subject
	Input       json.RawMessage
	Priority    int
	MaxAttempts int
	ExpiresAt   time.Time
}

// Submit admits a new PENDING job. There is no deduplication here; callers
// that want reuse consult FindCached first.
func (q *Queue) Submit(ctx context.Context, p SubmitParams) (*domain.Job, error) {
	if p.ToolSlug == "" {
		return nil, fmt.Errorf("submit: tool slug is required")
	}
	if err := p.Owner.Validate(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = time.Now().Add(DefaultRetention)
	}
	if len(p.Input) == 0 {
		p.Input = json.RawMessage(`{}`)
	}

	job := &domain.Job{
		ID:          uuid.New(),
		ToolSlug:    p.ToolSlug,
		Owner:       p.Owner,
		Status:      domain.JobStatusPending,
		Priority:    p.Priority,
		Input:       p.Input,
		MaxAttempts: p.MaxAttempts,
	}
	row := q.sql.QueryRow(ctx, sqlinline.QInsertJob,
		job.ID,
		job.ToolSlug,
		string(job.Owner.Kind),
		job.Owner.ID,
		job.Priority,
		[]byte(job.Input),
		job.MaxAttempts,
		p.ExpiresAt,
	)
	if err := row.Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt, &job.ExpiresAt); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	q.logger.Info().
		Str("job_id", job.ID.String()).
		Str("tool_slug", job.ToolSlug).
		Int("priority", job.Priority).
		Msg("queue: job submitted")
	return job, nil
}

// ClaimNext atomically takes ownership of the best PENDING candidate:
// highest priority first, oldest first within a tier, skipping rows locked by
// concurrent claimers. An empty toolSlug claims across all tools. Returns
// domain.ErrNoJob when nothing is eligible.
func (q *Queue) ClaimNext(ctx context.Context, toolSlug string) (*domain.Job, error) {
	var slug *string
	if toolSlug != "" {
		slug = &toolSlug
	}
	row := q.sql.QueryRow(ctx, sqlinline.QClaimNextJob, slug)

	job := &domain.Job{Status: domain.JobStatusProcessing}
	var ownerKind string
	if err := row.Scan(
		&job.ID,
		&job.ToolSlug,
		&ownerKind,
		&job.Owner.ID,
		&job.Priority,
		&job.Input,
		&job.Attempts,
		&job.MaxAttempts,
		&job.StartedAt,
		&job.ExpiresAt,
		&job.CreatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNoJob
		}
		return nil, fmt.Errorf("claim next: %w", err)
	}
	job.Owner.Kind = domain.SubjectKind(ownerKind)
	// Detach the input bytes from pgx's row buffer.
	job.Input = append(json.RawMessage(nil), job.Input...)
	return job, nil
}

// Complete records a successful terminal transition. Valid only from
// PROCESSING.
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID, output json.RawMessage) error {
	return q.complete(ctx, q.sql, jobID, output)
}

// CompleteTx is Complete executed on a caller-provided executor, so the
// terminal transition can share an atomic unit with a credit debit.
func (q *Queue) CompleteTx(ctx context.Context, sql infra.SQLExecutor, jobID uuid.UUID, output json.RawMessage) error {
	return q.complete(ctx, sql, jobID, output)
}

func (q *Queue) complete(ctx context.Context, sql infra.SQLExecutor, jobID uuid.UUID, output json.RawMessage) error {
	if len(output) == 0 {
		output = json.RawMessage(`{}`)
	}
	tag, err := sql.Exec(ctx, sqlinline.QCompleteJob, jobID, []byte(output))
	if err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, sql, jobID, "complete")
	}
	return nil
}

// Fail records a failed terminal transition with the error text captured
// verbatim. Valid only from PROCESSING.
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	return q.fail(ctx, q.sql, jobID, errMsg)
}

// FailTx is Fail executed on a caller-provided executor.
func (q *Queue) FailTx(ctx context.Context, sql infra.SQLExecutor, jobID uuid.UUID, errMsg string) error {
	return q.fail(ctx, sql, jobID, errMsg)
}

func (q *Queue) fail(ctx context.Context, sql infra.SQLExecutor, jobID uuid.UUID, errMsg string) error {
	tag, err := sql.Exec(ctx, sqlinline.QFailJob, jobID, errMsg)
	if err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, sql, jobID, "fail")
	}
	return nil
}

// Requeue returns a FAILED job with remaining attempts to the PENDING pool.
// A non-nil processAfter delays its claim eligibility.
func (q *Queue) Requeue(ctx context.Context, jobID uuid.UUID, processAfter *time.Time) error {
	tag, err := q.sql.Exec(ctx, sqlinline.QRequeueJob, jobID, processAfter)
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	if tag.RowsAffected() > 0 {
		q.logger.Info().Str("job_id", jobID.String()).Msg("queue: job requeued")
		return nil
	}
	job, err := q.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	if job.Status == domain.JobStatusFailed && job.Attempts >= job.MaxAttempts {
		return fmt.Errorf("requeue job %s: %w", jobID, domain.ErrRetryExhausted)
	}
	return fmt.Errorf("requeue job %s from %s: %w", jobID, job.Status, domain.ErrInvalidTransition)
}

// Cancel forces a non-terminal job to CANCELLED. Jobs that already reached a
// terminal state are left untouched.
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	tag, err := q.sql.Exec(ctx, sqlinline.QCancelJob, jobID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if tag.RowsAffected() > 0 {
		q.logger.Info().Str("job_id", jobID.String()).Msg("queue: job cancelled")
		return nil
	}
	return q.transitionError(ctx, q.sql, jobID, "cancel")
}

// Stats returns per-status job counts, optionally scoped to one tool slug.
func (q *Queue) Stats(ctx context.Context, toolSlug string) (domain.JobStats, error) {
	var slug *string
	if toolSlug != "" {
		slug = &toolSlug
	}
	var stats domain.JobStats
	row := q.sql.QueryRow(ctx, sqlinline.QJobStats, slug)
	if err := row.Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed, &stats.Cancelled); err != nil {
		return domain.JobStats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// GetByID fetches a job by its identifier.
func (q *Queue) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	row := q.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// transitionError distinguishes a missing row from a guarded update that
// matched nothing because the job was in the wrong state.
func (q *Queue) transitionError(ctx context.Context, sql infra.SQLExecutor, jobID uuid.UUID, op string) error {
	row := sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("%s job %s: %w", op, jobID, domain.ErrNotFound)
		}
		return fmt.Errorf("%s job %s: %w", op, jobID, err)
	}
	return fmt.Errorf("%s job %s from %s: %w", op, jobID, job.Status, domain.ErrInvalidTransition)
}

// scanJob reads the full job column list shared by the select statements.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var ownerKind, status string
	if err := row.Scan(
		&job.ID,
		&job.ToolSlug,
		&ownerKind,
		&job.Owner.ID,
		&status,
		&job.Priority,
		&job.Input,
		&job.Output,
		&job.ErrorMessage,
		&job.Attempts,
		&job.MaxAttempts,
		&job.ProcessAfter,
		&job.StartedAt,
		&job.CompletedAt,
		&job.ExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Owner.Kind = domain.SubjectKind(ownerKind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}
