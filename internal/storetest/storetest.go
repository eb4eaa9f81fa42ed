// Package storetest provides an in-memory stand-in for the Postgres schema,
// interpreting the statements in internal/sqlinline so service tests can run
// without a database. Statements execute under one mutex, which reproduces
// the guarantee the real claim query gets from FOR UPDATE SKIP LOCKED:
// concurrent claimers always pop distinct rows.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
)

// JobRow mirrors one row of the jobs table.
type JobRow struct {
	ID           uuid.UUID
	ToolSlug     string
	OwnerKind    string
	OwnerID      uuid.UUID
	Status       string
	Priority     int
	Input        []byte
	Output       []byte
	ErrorMessage string
	Attempts     int
	MaxAttempts  int
	ProcessAfter *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BalanceRow mirrors one row of the credit_balances table.
type BalanceRow struct {
	ID               uuid.UUID
	SubjectKind      string
	SubjectID        uuid.UUID
	Included         int64
	Used             int64
	Overage          int64
	PurchasedCredits int64
	PeriodStart      time.Time
	PeriodEnd        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TxRow mirrors one row of the credit_transactions table.
type TxRow struct {
	ID          uuid.UUID
	BalanceID   uuid.UUID
	Amount      int64
	Type        string
	ToolSlug    string
	JobID       *uuid.UUID
	Description string
	CreatedAt   time.Time
}

// Store implements infra.TxRunner over in-memory tables.
type Store struct {
	mu           sync.Mutex
	seq          int64
	Jobs         map[uuid.UUID]*JobRow
	Balances     map[string]*BalanceRow
	Transactions []TxRow

	// FailNextWrite makes the next mutating statement fail without applying
	// anything, emulating a statement-level database error. Cleared after use.
	FailNextWrite error
}

func New() *Store {
	return &Store{
		Jobs:     make(map[uuid.UUID]*JobRow),
		Balances: make(map[string]*BalanceRow),
	}
}

// now returns a strictly increasing timestamp so FIFO ordering is total even
// within one wall-clock tick. Callers must hold mu.
func (s *Store) now() time.Time {
	s.seq++
	return time.Now().Add(time.Duration(s.seq) * time.Nanosecond)
}

func balanceKey(kind string, id uuid.UUID) string {
	return kind + ":" + id.String()
}

// WithTx emulates an atomic unit by snapshotting the tables and restoring
// them when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	s.mu.Lock()
	jobs := make(map[uuid.UUID]*JobRow, len(s.Jobs))
	for id, row := range s.Jobs {
		copied := *row
		jobs[id] = &copied
	}
	balances := make(map[string]*BalanceRow, len(s.Balances))
	for key, row := range s.Balances {
		copied := *row
		balances[key] = &copied
	}
	txs := append([]TxRow(nil), s.Transactions...)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.Jobs = jobs
		s.Balances = balances
		s.Transactions = txs
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeWriteFailure(); err != nil {
		return pgconn.CommandTag{}, err
	}
	n, err := s.exec(query, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", n)), nil
}

func (s *Store) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, err := s.queryRow(query, args)
	if err != nil {
		return Row{Err: err}
	}
	return Row{Vals: vals}
}

func (s *Store) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.query(query, args)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (s *Store) takeWriteFailure() error {
	if err := s.FailNextWrite; err != nil {
		s.FailNextWrite = nil
		return err
	}
	return nil
}

// TransactionsOfType filters the ledger log, newest last.
func (s *Store) TransactionsOfType(txType string) []TxRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TxRow
	for _, tx := range s.Transactions {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

// Row is a single scripted result row.
type Row struct {
	Err  error
	Vals []any
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(dest) != len(r.Vals) {
		return fmt.Errorf("storetest: scan arity mismatch: %d dests, %d values", len(dest), len(r.Vals))
	}
	for i, d := range dest {
		if err := assign(d, r.Vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// Rows iterates scripted result rows, satisfying pgx.Rows.
type Rows struct {
	RowsBase
	rows [][]any
	idx  int
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return pgx.ErrNoRows
	}
	return Row{Vals: r.rows[r.idx-1]}.Scan(dest...)
}

func (r *Rows) Err() error { return nil }
func (r *Rows) Close()     {}

// RowsBase stubs the pgx.Rows methods tests never exercise.
type RowsBase struct{}

func (RowsBase) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (RowsBase) Conn() *pgx.Conn                              { return nil }
func (RowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (RowsBase) RawValues() [][]byte                          { return nil }
func (RowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func assign(dest, val any) error {
	switch d := dest.(type) {
	case *uuid.UUID:
		*d = val.(uuid.UUID)
	case **uuid.UUID:
		switch v := val.(type) {
		case nil:
			*d = nil
		case uuid.UUID:
			*d = &v
		case *uuid.UUID:
			*d = v
		}
	case *string:
		*d = val.(string)
	case *int:
		*d = val.(int)
	case *int64:
		*d = val.(int64)
	case *time.Time:
		*d = val.(time.Time)
	case **time.Time:
		if val == nil {
			*d = nil
		} else {
			v := val.(*time.Time)
			*d = v
		}
	case *json.RawMessage:
		if val == nil {
			*d = nil
		} else {
			*d = append(json.RawMessage(nil), val.([]byte)...)
		}
	case *[]byte:
		if val == nil {
			*d = nil
		} else {
			*d = append([]byte(nil), val.([]byte)...)
		}
	default:
		return fmt.Errorf("storetest: unsupported scan destination %T", dest)
	}
	return nil
}

// jsonEqual compares payloads structurally, as Postgres jsonb equality does.
func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
