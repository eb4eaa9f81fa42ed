// Package worker runs the tool-runner loop: claim a job, execute the tool,
// and commit the terminal transition together with its credit debit.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/ledger"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
	"github.com/aagnone3/software-multi-tool-sub002/internal/tool"
)

const DefaultPollInterval = 2 * time.Second

// Runner polls the queue and dispatches claimed jobs to registered tools.
// Many runner processes may point at the same database; the claim statement
// guarantees each job goes to exactly one of them.
type Runner struct {
	sql          infra.TxRunner
	queue        *queue.Queue
	ledger       *ledger.Ledger
	tools        *tool.Registry
	logger       infra.Logger
	toolSlug     string // optional claim scope; empty claims any tool
	pollInterval time.Duration
}

// Options configures a Runner.
type Options struct {
	SQL          infra.TxRunner
	Queue        *queue.Queue
	Ledger       *ledger.Ledger
	Tools        *tool.Registry
	Logger       infra.Logger
	ToolSlug     string
	PollInterval time.Duration
}

func NewRunner(opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Runner{
		sql:          opts.SQL,
		queue:        opts.Queue,
		ledger:       opts.Ledger,
		tools:        opts.Tools,
		logger:       opts.Logger,
		toolSlug:     opts.ToolSlug,
		pollInterval: opts.PollInterval,
	}
}

// Run polls until ctx is cancelled. An empty queue is a normal outcome; the
// runner sleeps and retries rather than blocking inside the queue.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Strs("tools", r.tools.Slugs()).Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := r.queue.ClaimNext(ctx, r.toolSlug)
		if err != nil {
			if errors.Is(err, domain.ErrNoJob) {
				r.sleep(ctx)
				continue
			}
			r.logger.Error().Err(err).Msg("worker: failed to claim job")
			r.sleep(ctx)
			continue
		}

		r.Process(ctx, job)
	}
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.pollInterval):
	}
}

// Process executes one claimed job and records its outcome. The terminal job
// update and the owner's usage debit commit in one transaction, so a job can
// never end up completed without its cost booked, or vice versa.
func (r *Runner) Process(ctx context.Context, job *domain.Job) {
	r.logger.Info().
		Str("job_id", job.ID.String()).
		Str("tool_slug", job.ToolSlug).
		Int("attempt", job.Attempts).
		Msg("worker: picked job")

	result, runErr := r.dispatch(ctx, job)

	err := r.sql.WithTx(ctx, func(sql infra.SQLExecutor) error {
		if runErr != nil {
			return r.queue.FailTx(ctx, sql, job.ID, runErr.Error())
		}
		if err := r.queue.CompleteTx(ctx, sql, job.ID, result.Output); err != nil {
			return err
		}
		if result.Credits > 0 {
			charge, err := r.ledger.RecordUsageTx(ctx, sql, job.Owner, job.ID, job.ToolSlug, result.Credits)
			if err != nil {
				return err
			}
			if charge.Overage > 0 {
				r.logger.Warn().
					Str("subject", job.Owner.String()).
					Int64("overage", charge.Overage).
					Msg("worker: job spilled into overage")
			}
		}
		return nil
	})
	if err != nil {
		// A lost cancel race surfaces here as an invalid transition; the job
		// is already terminal and the debit rolled back with the update.
		r.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("worker: record outcome failed")
		return
	}

	if runErr != nil {
		r.logger.Error().Err(runErr).Str("job_id", job.ID.String()).Msg("worker: job failed")
	} else {
		r.logger.Info().Str("job_id", job.ID.String()).Int64("credits", result.Credits).Msg("worker: job completed")
	}
}

func (r *Runner) dispatch(ctx context.Context, job *domain.Job) (tool.Result, error) {
	t, err := r.tools.Lookup(job.ToolSlug)
	if err != nil {
		return tool.Result{}, err
	}
	return t.Run(ctx, job.Input)
}
