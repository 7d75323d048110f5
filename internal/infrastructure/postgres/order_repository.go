package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "orderflow/internal/domain/order"
)

// OrderRepository stores orders as jsonb payloads keyed by order id, with
// user id and order date lifted into columns for the list path.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ domain.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("postgres: marshal order: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO orders(order_id, user_id, order_date, payload)
        VALUES($1, $2, $3, $4)`, order.ID, order.UserID, order.OrderDate, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM orders WHERE order_id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select order: %w", err)
	}
	return unmarshalOrder(payload)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT payload FROM orders WHERE user_id = $1 ORDER BY order_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: select orders by user: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		order, err := unmarshalOrder(payload)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("postgres: marshal order: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET user_id = $2, order_date = $3, payload = $4
        WHERE order_id = $1`, order.ID, order.UserID, order.OrderDate, payload)
	if err != nil {
		return fmt.Errorf("postgres: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func unmarshalOrder(payload []byte) (*domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal order: %w", err)
	}
	return &order, nil
}

// EnsureSchema creates the orders table and its user index if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
  order_id   text PRIMARY KEY,
  user_id    text NOT NULL,
  order_date timestamptz NOT NULL,
  payload    jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id);`)
	return err
}
