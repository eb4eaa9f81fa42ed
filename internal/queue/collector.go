package queue

import (
	"context"
	"fmt"

	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

// CleanupExpired deletes terminal jobs whose retention horizon has passed.
// PENDING and PROCESSING rows are never deleted, whatever their expires_at
// says: an in-flight job must not vanish out from under its worker.
func (q *Queue) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := q.sql.Exec(ctx, sqlinline.QDeleteExpiredJobs)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		q.logger.Info().Int64("count", n).Msg("queue: deleted expired jobs")
		return n, nil
	}
	return 0, nil
}
