package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/ledger"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
	"github.com/aagnone3/software-multi-tool-sub002/internal/storetest"
	"github.com/aagnone3/software-multi-tool-sub002/internal/tool"
)

// failingTool always errors with a fixed message.
type failingTool struct{ msg string }

func (failingTool) Name() string { return "flaky" }
func (f failingTool) Run(context.Context, json.RawMessage) (tool.Result, error) {
	return tool.Result{}, errors.New(f.msg)
}

func newTestRunner(store *storetest.Store, tools ...tool.Tool) (*Runner, *queue.Queue, *ledger.Ledger) {
	logger := zerolog.Nop()
	q := queue.New(store, logger)
	l := ledger.New(store, logger)
	r := NewRunner(Options{
		SQL:          store,
		Queue:        q,
		Ledger:       l,
		Tools:        tool.NewRegistry(tools...),
		Logger:       logger,
		PollInterval: time.Millisecond,
	})
	return r, q, l
}

func grantAndSubmit(t *testing.T, q *queue.Queue, l *ledger.Ledger, slug string, included int64) *domain.Job {
	t.Helper()
	ctx := context.Background()
	owner := domain.UserSubject(uuid.New())
	if _, err := l.Grant(ctx, owner, included, time.Now(), time.Now().AddDate(0, 1, 0)); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	job, err := q.Submit(ctx, queue.SubmitParams{
		ToolSlug: slug,
		Owner:    owner,
		Input:    json.RawMessage(`{"text":"hi"}`),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return job
}

func TestProcessCompletesJobAndDebitsUsage(t *testing.T) {
	store := storetest.New()
	r, q, l := newTestRunner(store, tool.Echo{Cost: 7})
	ctx := context.Background()

	job := grantAndSubmit(t, q, l, "echo", 100)

	claimed, err := q.ClaimNext(ctx, "")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	r.Process(ctx, claimed)

	row := store.Jobs[job.ID]
	if row.Status != "COMPLETED" {
		t.Fatalf("status %s, want COMPLETED", row.Status)
	}
	if string(row.Output) != `{"text":"hi"}` {
		t.Fatalf("output %s", row.Output)
	}

	balance, err := l.BalanceFor(ctx, job.Owner)
	if err != nil {
		t.Fatalf("BalanceFor: %v", err)
	}
	if balance.Used != 7 {
		t.Fatalf("used %d, want 7", balance.Used)
	}
	usage := store.TransactionsOfType("USAGE")
	if len(usage) != 1 || usage[0].JobID == nil || *usage[0].JobID != job.ID {
		t.Fatalf("usage transaction missing job provenance: %+v", usage)
	}
}

func TestProcessFailureRecordsErrorWithoutDebit(t *testing.T) {
	store := storetest.New()
	r, q, l := newTestRunner(store, failingTool{msg: "analyzer crashed on payload"})
	ctx := context.Background()

	job := grantAndSubmit(t, q, l, "flaky", 100)

	claimed, err := q.ClaimNext(ctx, "")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	r.Process(ctx, claimed)

	row := store.Jobs[job.ID]
	if row.Status != "FAILED" {
		t.Fatalf("status %s, want FAILED", row.Status)
	}
	if row.ErrorMessage != "analyzer crashed on payload" {
		t.Fatalf("error message %q", row.ErrorMessage)
	}
	balance, err := l.BalanceFor(ctx, job.Owner)
	if err != nil {
		t.Fatalf("BalanceFor: %v", err)
	}
	if balance.Used != 0 {
		t.Fatalf("failed run must not debit, used=%d", balance.Used)
	}
}

func TestProcessUnknownToolFailsJob(t *testing.T) {
	store := storetest.New()
	r, q, l := newTestRunner(store, tool.Echo{Cost: 1})
	ctx := context.Background()

	job := grantAndSubmit(t, q, l, "does_not_exist", 100)

	claimed, err := q.ClaimNext(ctx, "")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	r.Process(ctx, claimed)

	row := store.Jobs[job.ID]
	if row.Status != "FAILED" {
		t.Fatalf("status %s, want FAILED", row.Status)
	}
	if !strings.Contains(row.ErrorMessage, "unknown tool") {
		t.Fatalf("error message %q", row.ErrorMessage)
	}
}

func TestProcessCompletionAndDebitAreAtomic(t *testing.T) {
	store := storetest.New()
	r, q, _ := newTestRunner(store, tool.Echo{Cost: 5})
	ctx := context.Background()

	// No balance granted: the debit inside the commit unit fails.
	owner := domain.UserSubject(uuid.New())
	job, err := q.Submit(ctx, queue.SubmitParams{ToolSlug: "echo", Owner: owner, Input: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, err := q.ClaimNext(ctx, "")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	r.Process(ctx, claimed)

	// The terminal update must have rolled back with the failed debit.
	row := store.Jobs[job.ID]
	if row.Status != "PROCESSING" {
		t.Fatalf("status %s, want PROCESSING after rollback", row.Status)
	}
	if row.Output != nil {
		t.Fatalf("output leaked through rollback: %s", row.Output)
	}
	if len(store.Transactions) != 0 {
		t.Fatalf("transactions leaked through rollback: %d", len(store.Transactions))
	}
}

func TestProcessZeroCostSkipsLedger(t *testing.T) {
	store := storetest.New()
	r, q, _ := newTestRunner(store, tool.Echo{Cost: 0})
	ctx := context.Background()

	// No balance needed when the tool reports zero cost.
	owner := domain.UserSubject(uuid.New())
	job, err := q.Submit(ctx, queue.SubmitParams{ToolSlug: "echo", Owner: owner, Input: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, err := q.ClaimNext(ctx, "")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	r.Process(ctx, claimed)

	if store.Jobs[job.ID].Status != "COMPLETED" {
		t.Fatalf("status %s", store.Jobs[job.ID].Status)
	}
	if len(store.Transactions) != 0 {
		t.Fatalf("unexpected ledger writes: %d", len(store.Transactions))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := storetest.New()
	r, _, _ := newTestRunner(store, tool.Echo{Cost: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
