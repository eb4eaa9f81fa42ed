package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

// DefaultStuckTimeout is how long a job may sit in PROCESSING before the
// reaper presumes its worker is gone.
const DefaultStuckTimeout = 30 * time.Minute

// FindStuck lists PROCESSING jobs whose claim is older than timeout. Read
// only; useful for inspection before a sweep.
func (q *Queue) FindStuck(ctx context.Context, timeout time.Duration) ([]domain.Job, error) {
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	rows, err := q.sql.Query(ctx, sqlinline.QFindStuckJobs, timeout.Seconds())
	if err != nil {
		return nil, fmt.Errorf("find stuck: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("find stuck: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find stuck: %w", err)
	}
	return jobs, nil
}

// ReapStuck bulk-fails every job stuck in PROCESSING past timeout, writing
// the fixed timeout sentinel as the error so reaped jobs are distinguishable
// from tool-reported failures. Reaped jobs with remaining attempts stay
// eligible for the normal requeue path. Running it again with no new stuck
// jobs is a no-op.
func (q *Queue) ReapStuck(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	tag, err := q.sql.Exec(ctx, sqlinline.QReapStuckJobs, timeout.Seconds(), domain.TimeoutErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("reap stuck: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		q.logger.Warn().Int64("count", n).Dur("timeout", timeout).Msg("queue: reaped stuck jobs")
		return n, nil
	}
	return 0, nil
}
