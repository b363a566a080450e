// pkg/store/persist.go
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// OrderFailure records one order that could not be persisted.
type OrderFailure struct {
	PurchaseOrderNumber string
	Err                 error
}

// PersistReport summarizes a persistence pass. Each order lands in exactly
// one of the three sets.
type PersistReport struct {
	Persisted []string
	Skipped   []string
	Failed    []OrderFailure
}

// HasFailures reports whether any order failed to persist.
func (r *PersistReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// PersistedSet returns the persisted order numbers as a lookup set.
func (r *PersistReport) PersistedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Persisted))
	for _, number := range r.Persisted {
		set[number] = struct{}{}
	}
	return set
}

// PersistOrders writes each aggregate in its own transaction so one bad
// order never rolls back its neighbors. Order numbers already present in
// the store are skipped, not treated as failures. Orders are processed in
// order-number order for deterministic reports.
func (s *Store) PersistOrders(ctx context.Context, orders map[string]*model.PurchaseOrder) (*PersistReport, error) {
	report := &PersistReport{}

	numbers := make([]string, 0, len(orders))
	for number := range orders {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	for _, number := range numbers {
		duplicate, err := s.IsOrderAlreadyPersisted(ctx, number)
		if err != nil {
			report.Failed = append(report.Failed, OrderFailure{PurchaseOrderNumber: number, Err: err})
			continue
		}
		if duplicate {
			s.logger.Warn("Skipping already persisted order", zap.String("purchaseOrderNumber", number))
			report.Skipped = append(report.Skipped, number)
			continue
		}

		if err := s.persistOrder(ctx, orders[number]); err != nil {
			s.logger.Error("Failed to persist order",
				zap.String("purchaseOrderNumber", number),
				zap.Error(err))
			report.Failed = append(report.Failed, OrderFailure{PurchaseOrderNumber: number, Err: err})
			continue
		}
		report.Persisted = append(report.Persisted, number)
	}

	s.logger.Info("Persisted order batch",
		zap.Int("persisted", len(report.Persisted)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

func (s *Store) persistOrder(ctx context.Context, order *model.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(qctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderDate := order.PurchaseOrderDate
	if orderDate == "" {
		orderDate = time.Now().Format("2006-01-02 15:04:05")
	}

	var orderID int64
	err = tx.QueryRowxContext(qctx, `
		INSERT INTO purchase_orders (
			purchase_order_number, purchase_order_date, date_added,
			customer_first_name, customer_last_name,
			address, city, zip, phone,
			country_id, state_id,
			dropshipper_id
		)
		VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8, $9,
			(SELECT id FROM countries WHERE two_letter_code = $10),
			(SELECT st.id FROM states st
			   JOIN countries c ON c.id = st.country_id
			  WHERE st.code = $11 AND c.two_letter_code = $10),
			$12
		)
		RETURNING id`,
		order.PurchaseOrderNumber, orderDate, time.Now(),
		order.CustomerFirstName, order.CustomerLastName,
		order.Address, order.City, order.Zip, order.Phone,
		nullIfEmpty(order.Country), nullIfEmpty(order.State),
		order.DropshipperID).Scan(&orderID)
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.PurchaseOrderNumber, err)
	}

	skus := make([]string, 0, len(order.Items))
	for sku := range order.Items {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	for _, sku := range skus {
		_, err = tx.ExecContext(qctx, `
			INSERT INTO purchase_order_items (purchase_order_id, sku, quantity)
			VALUES ($1, $2, $3)`,
			orderID, sku, order.Items[sku])
		if err != nil {
			return fmt.Errorf("failed to insert item %s for order %s: %w", sku, order.PurchaseOrderNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order %s: %w", order.PurchaseOrderNumber, err)
	}
	return nil
}

// nullIfEmpty maps the unresolved ("") country or state to SQL NULL.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
