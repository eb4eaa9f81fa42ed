package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

// DefaultCacheMaxAge is the freshness window for cached results.
const DefaultCacheMaxAge = 24 * time.Hour

// FindCached looks for the most recently completed job with the same tool
// slug and structurally equal input within the freshness window. The lookup
// is advisory: callers decide whether to reuse the hit or submit a new job.
// Returns domain.ErrNotFound on a miss.
func (q *Queue) FindCached(ctx context.Context, toolSlug string, input json.RawMessage, maxAge time.Duration) (*domain.Job, error) {
	if toolSlug == "" {
		return nil, fmt.Errorf("find cached: tool slug is required")
	}
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	row := q.sql.QueryRow(ctx, sqlinline.QFindCachedJob, toolSlug, []byte(input), maxAge.Seconds())
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find cached: %w", err)
	}
	return job, nil
}
