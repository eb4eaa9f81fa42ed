package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the business reason for a ledger entry.
type TransactionType string

const (
	TxGrant      TransactionType = "GRANT"
	TxUsage      TransactionType = "USAGE"
	TxOverage    TransactionType = "OVERAGE"
	TxRefund     TransactionType = "REFUND"
	TxPurchase   TransactionType = "PURCHASE"
	TxAdjustment TransactionType = "ADJUSTMENT"
)

// CreditBalance is the current budget state for a subject and billing period.
// The counters are materialized columns; every mutation is paired with a
// CreditTransaction row inside the same atomic unit.
type CreditBalance struct {
	ID               uuid.UUID
	Subject          Subject
	Included         int64
	Used             int64
	Overage          int64
	PurchasedCredits int64
	PeriodStart      time.Time
	PeriodEnd        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining reports how much of the prepaid budget is still unspent.
func (b *CreditBalance) Remaining() int64 {
	r := b.Included + b.PurchasedCredits - b.Used
	if r < 0 {
		return 0
	}
	return r
}

// CreditTransaction is an immutable audit record of a single balance-affecting
// event. The ledger only ever inserts these rows; there is no update or
// delete path in the domain.
type CreditTransaction struct {
	ID          uuid.UUID
	BalanceID   uuid.UUID
	Amount      int64
	Type        TransactionType
	ToolSlug    string
	JobID       *uuid.UUID
	Description string
	CreatedAt   time.Time
}
