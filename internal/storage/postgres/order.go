package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, identity_id, lines, total, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	listOrdersByIdentitySQL = `SELECT id, identity_id, lines, total, created_at
		FROM orders WHERE identity_id = $1
		ORDER BY created_at DESC, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Persist stores d under a fresh UUID. The order lines are serialized to JSON
// for storage in the JSONB column.
func (r *OrderRepository) Persist(ctx context.Context, d order.Draft) (string, error) {
	linesJSON, err := json.Marshal(d.Lines)
	if err != nil {
		return "", fmt.Errorf("marshaling order lines: %w", err)
	}

	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, createOrderSQL,
		id, d.IdentityID, linesJSON, d.Total, d.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("creating order for %q: %w", d.IdentityID, err)
	}

	return id, nil
}

// ListByIdentity returns the orders placed by identityID, newest first.
func (r *OrderRepository) ListByIdentity(ctx context.Context, identityID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByIdentitySQL, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", identityID, err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", identityID, err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
	)
	if err := row.Scan(&o.ID, &o.IdentityID, &linesJSON, &o.Total, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling lines of order %q: %w", o.ID, err)
	}
	return o, nil
}
