package ledger

import (
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	// historyLimit caps the audit trail kept inside each ledger document
	historyLimit = 500
	// pruneMonths is how far back settled debt lines are retained
	pruneMonths = 3
)

// DebtItem is one outstanding or settled charge on a customer's ledger.
// A charge originating from an order carries that order's ID, which makes
// repeated syncs for the same order idempotent.
type DebtItem struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
	Date   time.Time       `json:"date"`
	Notes  string          `json:"notes,omitempty"`
}

// DebtItemKindOrder marks a ledger line that mirrors an order total
const DebtItemKindOrder = "order"

// HistoryEntry records one mutation of the ledger document
type HistoryEntry struct {
	Timestamp time.Time  `json:"timestamp"`
	Action    string     `json:"action"`
	Type      string     `json:"type"`
	Items     []DebtItem `json:"items"`
}

// CustomerDebtLedger is a single JSON document holding everything owed by
// one customer. It is always read, modified, and written back as a whole,
// so writes for the same customer must never run concurrently.
type CustomerDebtLedger struct {
	CustomerID string                            `gorm:"type:varchar(50);primaryKey"`
	Items      datatypes.JSONSlice[DebtItem]     `gorm:"not null"`
	History    datatypes.JSONSlice[HistoryEntry] `gorm:"not null"`
	UpdatedAt  time.Time                         `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (CustomerDebtLedger) TableName() string {
	return "customer_debt_ledgers"
}

// NewCustomerDebtLedger creates an empty ledger for a customer
func NewCustomerDebtLedger(customerID string) (*CustomerDebtLedger, error) {
	if customerID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	return &CustomerDebtLedger{
		CustomerID: customerID,
		Items:      datatypes.JSONSlice[DebtItem]{},
		History:    datatypes.JSONSlice[HistoryEntry]{},
		UpdatedAt:  time.Now(),
	}, nil
}

// ApplyOrderCharge creates the debt line for an order, or updates its amount
// when the order total changed. Returns true when the document was modified;
// re-applying an unchanged amount is a no-op and records no history.
func (l *CustomerDebtLedger) ApplyOrderCharge(orderID string, amount decimal.Decimal, now time.Time) bool {
	for i := range l.Items {
		if l.Items[i].ID != orderID {
			continue
		}
		if l.Items[i].Amount.Equal(amount) {
			return false
		}
		l.Items[i].Amount = amount
		l.appendHistory("update", DebtItemKindOrder, now)
		l.UpdatedAt = now
		return true
	}

	l.Items = append(l.Items, DebtItem{
		ID:     orderID,
		Kind:   DebtItemKindOrder,
		Amount: amount,
		Date:   now,
	})
	l.appendHistory("add", DebtItemKindOrder, now)
	l.UpdatedAt = now
	return true
}

// MarkPaid settles the line for an order. Returns true when a line changed.
func (l *CustomerDebtLedger) MarkPaid(orderID string, now time.Time) bool {
	for i := range l.Items {
		if l.Items[i].ID == orderID && !l.Items[i].Paid {
			l.Items[i].Paid = true
			l.appendHistory("settle", DebtItemKindOrder, now)
			l.UpdatedAt = now
			return true
		}
	}
	return false
}

// Owes reports whether the customer has any unpaid line
func (l *CustomerDebtLedger) Owes() bool {
	for _, item := range l.Items {
		if !item.Paid {
			return true
		}
	}
	return false
}

// Prune drops settled lines older than the retention window. Unpaid lines
// are kept regardless of age. Returns true when anything was removed.
func (l *CustomerDebtLedger) Prune(now time.Time) bool {
	cutoff := now.AddDate(0, -pruneMonths, 0)
	kept := l.Items[:0]
	for _, item := range l.Items {
		if !item.Paid || item.Date.After(cutoff) {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(l.Items) {
		return false
	}
	l.Items = kept
	l.appendHistory("prune", DebtItemKindOrder, now)
	l.UpdatedAt = now
	return true
}

// appendHistory records a mutation with a snapshot of the current items,
// keeping only the most recent historyLimit entries.
func (l *CustomerDebtLedger) appendHistory(action, kind string, now time.Time) {
	snapshot := make([]DebtItem, len(l.Items))
	copy(snapshot, l.Items)

	l.History = append(l.History, HistoryEntry{
		Timestamp: now,
		Action:    action,
		Type:      kind,
		Items:     snapshot,
	})
	if len(l.History) > historyLimit {
		l.History = l.History[len(l.History)-historyLimit:]
	}
}
