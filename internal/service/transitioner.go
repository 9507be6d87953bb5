package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

const maxTransitionAttempts = 5

var (
	errVersionConflict = errors.New("order version conflict")
	errOrderMissing    = errors.New("order not found")
)

// orderLoader reads the order inside the transition's transaction.
type orderLoader func(ctx context.Context, tx *gorm.DB) (*model.Order, error)

// sideEffect runs in the same transaction after the order write; it sees
// the stored order and the transition outcome.
type sideEffect func(ctx context.Context, tx *gorm.DB, order *model.Order, out outcome) error

// OrderTransitioner applies pure transitions through the version guard.
// Every attempt reads, transitions and writes in one transaction, and a lost
// compare-and-set restarts the attempt from a fresh read.
type OrderTransitioner struct {
	db     *gorm.DB
	orders repository.OrderRepository
	clock  clock.Clock
}

func NewOrderTransitioner(db *gorm.DB, orders repository.OrderRepository, clk clock.Clock) *OrderTransitioner {
	return &OrderTransitioner{db: db, orders: orders, clock: clk}
}

func (t *OrderTransitioner) Apply(
	ctx context.Context,
	load orderLoader,
	step func(order model.Order) (outcome, error),
	after sideEffect,
) (*model.Order, outcome, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		var (
			result *model.Order
			out    outcome
		)

		err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := load(ctx, tx)
			if err != nil {
				if repository.IsNotFound(err) {
					return errOrderMissing
				}
				return fmt.Errorf("load order: %w", err)
			}

			out, err = step(*current)
			if err != nil {
				return err
			}

			result = current
			if out.changed {
				next := out.next
				next.UpdatedAt = t.clock.Now()
				ok, err := t.orders.CompareAndSwap(ctx, tx, &next, current.Version)
				if err != nil {
					return fmt.Errorf("write order: %w", err)
				}
				if !ok {
					return errVersionConflict
				}
				result = &next
			}

			if after != nil {
				return after(ctx, tx, result, out)
			}
			return nil
		})

		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, outcome{}, err
		}
		return result, out, nil
	}

	return nil, outcome{}, apperr.Wrap(fmt.Errorf("order transition: %w after %d attempts", errVersionConflict, maxTransitionAttempts))
}

func byOrderID(orders repository.OrderRepository, orderID string) orderLoader {
	return func(ctx context.Context, tx *gorm.DB) (*model.Order, error) {
		return orders.FindByID(ctx, tx, orderID)
	}
}

// byOrderOrIntent prefers the metadata order id and falls back to the
// order currently holding the intent.
func byOrderOrIntent(orders repository.OrderRepository, orderID, intentID string) orderLoader {
	return func(ctx context.Context, tx *gorm.DB) (*model.Order, error) {
		if orderID != "" {
			order, err := orders.FindByID(ctx, tx, orderID)
			if err == nil || !repository.IsNotFound(err) || intentID == "" {
				return order, err
			}
		}
		if intentID == "" {
			return nil, gorm.ErrRecordNotFound
		}
		return orders.FindByIntentID(ctx, tx, intentID)
	}
}
