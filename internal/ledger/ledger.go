// Package ledger keeps prepaid credit budgets and their append-only audit
// trail. Every balance mutation and its transaction record are written in a
// single atomic statement, so the log can never disagree with the counters.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

// Ledger is stateless over the shared store and safe for concurrent use.
type Ledger struct {
	sql    infra.SQLExecutor
	logger infra.Logger
}

func New(sql infra.SQLExecutor, logger infra.Logger) *Ledger {
	return &Ledger{sql: sql, logger: logger}
}

// Grant upserts the subject's balance for a new subscription period and logs
// a GRANT transaction. Unlike the other mutations it creates the balance when
// absent, with zero used/overage/purchased counters.
func (l *Ledger) Grant(ctx context.Context, subject domain.Subject, included int64, periodStart, periodEnd time.Time) (*domain.CreditBalance, error) {
	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("grant: %w", err)
	}
	if included < 0 {
		return nil, fmt.Errorf("grant: included credits must be non-negative, got %d", included)
	}
	description := fmt.Sprintf("Granted %d included credits", included)
	row := l.sql.QueryRow(ctx, sqlinline.QGrantBalance,
		string(subject.Kind), subject.ID, included, periodStart, periodEnd, description)
	balance, err := scanBalance(row)
	if err != nil {
		return nil, fmt.Errorf("grant: %w", err)
	}
	l.logger.Info().
		Str("subject", subject.String()).
		Int64("included", included).
		Msg("ledger: credits granted")
	return balance, nil
}

// ResetForNewPeriod zeroes used and overage for a fresh billing window while
// preserving included and purchased credits, and logs a zero-amount
// ADJUSTMENT as the audit marker. Fails with domain.ErrBalanceNotFound when
// the subject was never granted a balance; there is no implicit creation here.
func (l *Ledger) ResetForNewPeriod(ctx context.Context, subject domain.Subject, periodStart, periodEnd time.Time) (*domain.CreditBalance, error) {
	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("reset period: %w", err)
	}
	row := l.sql.QueryRow(ctx, sqlinline.QResetBalance,
		string(subject.Kind), subject.ID, periodStart, periodEnd, "Period reset")
	balance, err := scanBalance(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("reset period for %s: %w", subject, domain.ErrBalanceNotFound)
		}
		return nil, fmt.Errorf("reset period: %w", err)
	}
	return balance, nil
}

// AdjustForPlanChange moves included to newIncluded and logs an ADJUSTMENT
// for the signed delta: positive on upgrade, negative on downgrade. Fails
// with domain.ErrBalanceNotFound when the subject has no balance.
func (l *Ledger) AdjustForPlanChange(ctx context.Context, subject domain.Subject, newIncluded int64, description string) (*domain.CreditBalance, error) {
	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("plan change: %w", err)
	}
	if newIncluded < 0 {
		return nil, fmt.Errorf("plan change: included credits must be non-negative, got %d", newIncluded)
	}
	row := l.sql.QueryRow(ctx, sqlinline.QAdjustBalance,
		string(subject.Kind), subject.ID, newIncluded, description)
	var balance domain.CreditBalance
	var kind string
	var delta int64
	if err := row.Scan(
		&balance.ID, &kind, &balance.Subject.ID,
		&balance.Included, &balance.Used, &balance.Overage, &balance.PurchasedCredits,
		&balance.PeriodStart, &balance.PeriodEnd, &balance.CreatedAt, &balance.UpdatedAt,
		&delta,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("plan change for %s: %w", subject, domain.ErrBalanceNotFound)
		}
		return nil, fmt.Errorf("plan change: %w", err)
	}
	balance.Subject.Kind = domain.SubjectKind(kind)
	l.logger.Info().
		Str("subject", subject.String()).
		Int64("delta", delta).
		Msg("ledger: plan change adjustment")
	return &balance, nil
}

// RecordPurchase tops up purchased credits and logs a PURCHASE transaction.
// Fails with domain.ErrBalanceNotFound when the subject has no balance.
func (l *Ledger) RecordPurchase(ctx context.Context, subject domain.Subject, credits int64, description string) error {
	if err := subject.Validate(); err != nil {
		return fmt.Errorf("purchase: %w", err)
	}
	if credits <= 0 {
		return fmt.Errorf("purchase: credits must be positive, got %d", credits)
	}
	row := l.sql.QueryRow(ctx, sqlinline.QRecordPurchase,
		string(subject.Kind), subject.ID, credits, description)
	var balanceID uuid.UUID
	if err := row.Scan(&balanceID); err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("purchase for %s: %w", subject, domain.ErrBalanceNotFound)
		}
		return fmt.Errorf("purchase: %w", err)
	}
	return nil
}

// UsageCharge reports how a debit was split across the prepaid budget.
type UsageCharge struct {
	Covered int64 // consumed from included + purchased credits
	Overage int64 // spill past the prepaid budget
}

// RecordUsage debits cost credits for a completed job against the owner's
// balance, splitting into USAGE for the covered part and OVERAGE for any
// spill. Cost decisions belong to the tool runner; the ledger only books them.
func (l *Ledger) RecordUsage(ctx context.Context, subject domain.Subject, jobID uuid.UUID, toolSlug string, cost int64) (UsageCharge, error) {
	return l.RecordUsageTx(ctx, l.sql, subject, jobID, toolSlug, cost)
}

// RecordUsageTx is RecordUsage on a caller-provided executor, so the debit
// can commit atomically with the job's terminal transition.
func (l *Ledger) RecordUsageTx(ctx context.Context, sql infra.SQLExecutor, subject domain.Subject, jobID uuid.UUID, toolSlug string, cost int64) (UsageCharge, error) {
	if err := subject.Validate(); err != nil {
		return UsageCharge{}, fmt.Errorf("usage: %w", err)
	}
	if cost < 0 {
		return UsageCharge{}, fmt.Errorf("usage: cost must be non-negative, got %d", cost)
	}
	description := fmt.Sprintf("Tool %s run", toolSlug)
	row := sql.QueryRow(ctx, sqlinline.QRecordUsage,
		string(subject.Kind), subject.ID, cost, toolSlug, jobID, description)
	var charge UsageCharge
	if err := row.Scan(&charge.Covered, &charge.Overage); err != nil {
		if infra.IsNoRows(err) {
			return UsageCharge{}, fmt.Errorf("usage for %s: %w", subject, domain.ErrBalanceNotFound)
		}
		return UsageCharge{}, fmt.Errorf("usage: %w", err)
	}
	return charge, nil
}

// BalanceFor returns the subject's current balance, or
// domain.ErrBalanceNotFound.
func (l *Ledger) BalanceFor(ctx context.Context, subject domain.Subject) (*domain.CreditBalance, error) {
	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	row := l.sql.QueryRow(ctx, sqlinline.QSelectBalance, string(subject.Kind), subject.ID)
	balance, err := scanBalance(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("balance for %s: %w", subject, domain.ErrBalanceNotFound)
		}
		return nil, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

// PurchasesFor lists PURCHASE transactions for billing history display,
// newest first. An empty history is not an error.
func (l *Ledger) PurchasesFor(ctx context.Context, subject domain.Subject) ([]domain.CreditTransaction, error) {
	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("purchases: %w", err)
	}
	rows, err := l.sql.Query(ctx, sqlinline.QListPurchases, string(subject.Kind), subject.ID)
	if err != nil {
		return nil, fmt.Errorf("purchases: %w", err)
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		var txType string
		if err := rows.Scan(
			&tx.ID, &tx.BalanceID, &tx.Amount, &txType,
			&tx.ToolSlug, &tx.JobID, &tx.Description, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("purchases: %w", err)
		}
		tx.Type = domain.TransactionType(txType)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purchases: %w", err)
	}
	return txs, nil
}

func scanBalance(row pgx.Row) (*domain.CreditBalance, error) {
	var balance domain.CreditBalance
	var kind string
	if err := row.Scan(
		&balance.ID, &kind, &balance.Subject.ID,
		&balance.Included, &balance.Used, &balance.Overage, &balance.PurchasedCredits,
		&balance.PeriodStart, &balance.PeriodEnd, &balance.CreatedAt, &balance.UpdatedAt,
	); err != nil {
		return nil, err
	}
	balance.Subject.Kind = domain.SubjectKind(kind)
	return &balance, nil
}
