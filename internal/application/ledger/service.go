package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// Service maintains per-customer debt ledgers. Every mutation reads the
// whole document, changes it, and writes it back, so callers must serialize
// invocations per customer (see the keyed task queue).
type Service struct {
	ledgers ledger.Repository
	logger  *zap.Logger
}

// NewService creates a new debt ledger service
func NewService(ledgers ledger.Repository, logger *zap.Logger) *Service {
	return &Service{
		ledgers: ledgers,
		logger:  logger,
	}
}

// SyncOrderCharge makes the customer's ledger reflect the current total of a
// fulfilled order. The first sync creates the debt line; later syncs update
// the amount in place. An unchanged amount writes nothing.
func (s *Service) SyncOrderCharge(ctx context.Context, customerID, orderID string, amount decimal.Decimal) error {
	l, err := s.loadOrCreate(ctx, customerID)
	if err != nil {
		return err
	}

	now := time.Now()
	pruned := l.Prune(now)
	changed := l.ApplyOrderCharge(orderID, amount, now)

	if !pruned && !changed {
		s.logger.Debug("Debt ledger already up to date",
			zap.String("customer_id", customerID),
			zap.String("order_id", orderID),
		)
		return nil
	}

	if err := s.ledgers.Save(ctx, l); err != nil {
		return fmt.Errorf("save debt ledger for customer %s: %w", customerID, err)
	}

	s.logger.Info("Debt ledger synced",
		zap.String("customer_id", customerID),
		zap.String("order_id", orderID),
		zap.String("amount", amount.String()),
		zap.Bool("pruned", pruned),
	)
	return nil
}

// SettleOrder marks the debt line for an order as paid
func (s *Service) SettleOrder(ctx context.Context, customerID, orderID string) error {
	l, err := s.ledgers.FindByCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if !l.MarkPaid(orderID, time.Now()) {
		return nil
	}
	if err := s.ledgers.Save(ctx, l); err != nil {
		return fmt.Errorf("save debt ledger for customer %s: %w", customerID, err)
	}
	return nil
}

// Get returns the customer's ledger document
func (s *Service) Get(ctx context.Context, customerID string) (*ledger.CustomerDebtLedger, error) {
	return s.ledgers.FindByCustomer(ctx, customerID)
}

func (s *Service) loadOrCreate(ctx context.Context, customerID string) (*ledger.CustomerDebtLedger, error) {
	l, err := s.ledgers.FindByCustomer(ctx, customerID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load debt ledger for customer %s: %w", customerID, err)
	}
	return ledger.NewCustomerDebtLedger(customerID)
}
