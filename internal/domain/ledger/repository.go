package ledger

import "context"

// Repository defines persistence operations for customer debt ledgers
type Repository interface {
	FindByCustomer(ctx context.Context, customerID string) (*CustomerDebtLedger, error)
	Save(ctx context.Context, ledger *CustomerDebtLedger) error
}
