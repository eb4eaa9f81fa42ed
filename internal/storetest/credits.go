package storetest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

func (s *Store) queryRow(query string, args []any) ([]any, error) {
	if vals, handled, err := s.queryRowJobs(query, args); handled {
		return vals, err
	}
	if vals, handled, err := s.queryRowCredits(query, args); handled {
		return vals, err
	}
	return nil, fmt.Errorf("storetest: unexpected query_row statement: %.40q", query)
}

func (s *Store) queryRowCredits(query string, args []any) ([]any, bool, error) {
	switch query {
	case sqlinline.QGrantBalance:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		kind, id := args[0].(string), args[1].(uuid.UUID)
		included := args[2].(int64)
		now := s.now()
		row, ok := s.Balances[balanceKey(kind, id)]
		if !ok {
			row = &BalanceRow{
				ID:          uuid.New(),
				SubjectKind: kind,
				SubjectID:   id,
				CreatedAt:   now,
			}
			s.Balances[balanceKey(kind, id)] = row
		}
		row.Included = included
		row.PeriodStart = args[3].(time.Time)
		row.PeriodEnd = args[4].(time.Time)
		row.UpdatedAt = now
		s.appendTx(TxRow{BalanceID: row.ID, Amount: included, Type: "GRANT", Description: args[5].(string)})
		return balanceVals(row), true, nil
	case sqlinline.QResetBalance:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		row.Used = 0
		row.Overage = 0
		row.PeriodStart = args[2].(time.Time)
		row.PeriodEnd = args[3].(time.Time)
		row.UpdatedAt = s.now()
		s.appendTx(TxRow{BalanceID: row.ID, Amount: 0, Type: "ADJUSTMENT", Description: args[4].(string)})
		return balanceVals(row), true, nil
	case sqlinline.QAdjustBalance:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		newIncluded := args[2].(int64)
		delta := newIncluded - row.Included
		row.Included = newIncluded
		row.UpdatedAt = s.now()
		s.appendTx(TxRow{BalanceID: row.ID, Amount: delta, Type: "ADJUSTMENT", Description: args[3].(string)})
		return append(balanceVals(row), delta), true, nil
	case sqlinline.QRecordPurchase:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		credits := args[2].(int64)
		row.PurchasedCredits += credits
		row.UpdatedAt = s.now()
		s.appendTx(TxRow{BalanceID: row.ID, Amount: credits, Type: "PURCHASE", Description: args[3].(string)})
		return []any{row.ID}, true, nil
	case sqlinline.QRecordUsage:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		cost := args[2].(int64)
		toolSlug := args[3].(string)
		jobID := args[4].(uuid.UUID)
		description := args[5].(string)
		remaining := row.Included + row.PurchasedCredits - row.Used
		if remaining < 0 {
			remaining = 0
		}
		covered := cost
		if covered > remaining {
			covered = remaining
		}
		spill := cost - covered
		row.Used += covered
		row.Overage += spill
		row.UpdatedAt = s.now()
		if covered > 0 || spill == 0 {
			s.appendTx(TxRow{BalanceID: row.ID, Amount: -covered, Type: "USAGE", ToolSlug: toolSlug, JobID: &jobID, Description: description})
		}
		if spill > 0 {
			s.appendTx(TxRow{BalanceID: row.ID, Amount: -spill, Type: "OVERAGE", ToolSlug: toolSlug, JobID: &jobID, Description: description})
		}
		return []any{covered, spill}, true, nil
	case sqlinline.QSelectBalance:
		row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		return balanceVals(row), true, nil
	}
	return nil, false, nil
}

func (s *Store) listPurchases(args []any) ([][]any, error) {
	row, ok := s.Balances[balanceKey(args[0].(string), args[1].(uuid.UUID))]
	if !ok {
		return nil, nil
	}
	var purchases []TxRow
	for _, tx := range s.Transactions {
		if tx.BalanceID == row.ID && tx.Type == "PURCHASE" {
			purchases = append(purchases, tx)
		}
	}
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].CreatedAt.After(purchases[j].CreatedAt) })
	rows := make([][]any, len(purchases))
	for i, tx := range purchases {
		rows[i] = []any{tx.ID, tx.BalanceID, tx.Amount, tx.Type, tx.ToolSlug, tx.JobID, tx.Description, tx.CreatedAt}
	}
	return rows, nil
}

func (s *Store) appendTx(tx TxRow) {
	tx.ID = uuid.New()
	tx.CreatedAt = s.now()
	s.Transactions = append(s.Transactions, tx)
}

func balanceVals(r *BalanceRow) []any {
	return []any{
		r.ID, r.SubjectKind, r.SubjectID, r.Included, r.Used, r.Overage,
		r.PurchasedCredits, r.PeriodStart, r.PeriodEnd, r.CreatedAt, r.UpdatedAt,
	}
}
