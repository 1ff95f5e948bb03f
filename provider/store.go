package provider

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/reform.v1"

	"github.com/gamevault/recon"
)

// Store gives the engine its bounded view of the orders table. Every read
// re-applies the status and window filters so a reconciliation never acts on
// a stale snapshot.
type Store struct {
	DB *reform.DB
}

func (s *Store) FindVerifying(ctx context.Context, since time.Time) ([]recon.Order, error) {
	structs, err := s.DB.WithContext(ctx).SelectAllFrom(
		recon.OrderTable,
		"WHERE status = $1 AND created_at > $2 ORDER BY created_at",
		recon.OrderStatusVerifying, since,
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed select verifying orders")
	}
	return asOrders(structs), nil
}

func (s *Store) FindVerifyingByAmount(ctx context.Context, amount decimal.Decimal, since time.Time) ([]recon.Order, error) {
	structs, err := s.DB.WithContext(ctx).SelectAllFrom(
		recon.OrderTable,
		"WHERE status = $1 AND total_amount = $2 AND created_at > $3 ORDER BY created_at",
		recon.OrderStatusVerifying, amount, since,
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed select verifying orders by amount")
	}
	return asOrders(structs), nil
}

// SetStatus writes the new status for the whole batch in one statement, so no
// partially updated state is ever observable.
func (s *Store) SetStatus(ctx context.Context, ids []string, status recon.OrderStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.DB.WithContext(ctx).Exec(
		"UPDATE orders SET status = $1, updated_at = now() WHERE id = ANY($2)",
		status, pq.Array(ids),
	)
	return errors.Wrap(err, "Failed update orders status")
}

func (s *Store) Load(ctx context.Context, id string) (*recon.Order, error) {
	var o recon.Order
	if err := s.DB.WithContext(ctx).FindByPrimaryKeyTo(&o, id); err != nil {
		if err == reform.ErrNoRows {
			return nil, recon.ErrNotFound
		}
		return nil, errors.Wrap(err, "Failed load order")
	}
	return &o, nil
}

func asOrders(structs []reform.Struct) []recon.Order {
	res := make([]recon.Order, 0, len(structs))
	for _, s := range structs {
		res = append(res, *s.(*recon.Order))
	}
	return res
}
