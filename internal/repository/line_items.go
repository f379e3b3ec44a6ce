package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/lib/pq"
)

const lineItemColumns = `id, user_id, product_id, quantity, price, active, order_id, created_at, updated_at`

func scanLineItem(row rowScanner) (*domain.LineItem, error) {
	var li domain.LineItem
	err := row.Scan(
		&li.ID,
		&li.UserID,
		&li.ProductID,
		&li.Quantity,
		&li.Price,
		&li.Active,
		&li.OrderID,
		&li.CreatedAt,
		&li.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &li, nil
}

func (q *Queries) queryLineItems(ctx context.Context, query string, args ...any) ([]*domain.LineItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []*domain.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line item row: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (q *Queries) CreateLineItem(ctx context.Context, item *domain.LineItem) error {
	query := `INSERT INTO line_items (user_id, product_id, quantity, price, active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
	          RETURNING id, active, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		item.UserID,
		item.ProductID,
		item.Quantity,
		item.Price,
	).Scan(&item.ID, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

func (q *Queries) GetLineItem(ctx context.Context, id int64) (*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items WHERE id = $1`

	li, err := scanLineItem(q.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLineItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query line item by id: %w", err)
	}
	return li, nil
}

// UpdateLineItem changes quantity and price of an item still in the cart.
func (q *Queries) UpdateLineItem(ctx context.Context, item *domain.LineItem) error {
	query := `UPDATE line_items SET quantity = $3, price = $4, updated_at = NOW()
	          WHERE id = $1 AND user_id = $2 AND active
	          RETURNING updated_at`

	err := q.db.QueryRowContext(ctx, query, item.ID, item.UserID, item.Quantity, item.Price).Scan(&item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLineItemNotFound
	}
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	return nil
}

func (q *Queries) DeleteLineItem(ctx context.Context, id, userID int64) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM line_items WHERE id = $1 AND user_id = $2 AND active`, id, userID)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete line item rows affected: %w", err)
	}
	if n == 0 {
		return ErrLineItemNotFound
	}
	return nil
}

func (q *Queries) ListActiveLineItems(ctx context.Context, userID int64) ([]*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items WHERE user_id = $1 AND active ORDER BY id`
	return q.queryLineItems(ctx, query, userID)
}

// LockActiveLineItems returns only the requested items that are still active
// and owned by userID, holding a row lock on each until the tx ends.
func (q *Queries) LockActiveLineItems(ctx context.Context, userID int64, ids []int64) ([]*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items
	          WHERE user_id = $1 AND id = ANY($2) AND active
	          ORDER BY id FOR UPDATE`
	return q.queryLineItems(ctx, query, userID, pq.Array(ids))
}

// ConsumeLineItem attaches an active item to an order and freezes its price.
// An item consumed by a concurrent transaction yields ErrLineItemConsumed.
func (q *Queries) ConsumeLineItem(ctx context.Context, item *domain.LineItem, orderID int64) error {
	query := `UPDATE line_items SET active = FALSE, order_id = $2, price = $3, updated_at = NOW()
	          WHERE id = $1 AND active`

	res, err := q.db.ExecContext(ctx, query, item.ID, orderID, item.Price)
	if err != nil {
		return fmt.Errorf("consume line item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume line item rows affected: %w", err)
	}
	if n == 0 {
		return ErrLineItemConsumed
	}
	item.Active = false
	item.OrderID = &orderID
	return nil
}

func (q *Queries) listOrderLineItems(ctx context.Context, orderIDs []int64) (map[int64][]*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items WHERE order_id = ANY($1) ORDER BY id`

	items, err := q.queryLineItems(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int64][]*domain.LineItem, len(orderIDs))
	for _, li := range items {
		byOrder[*li.OrderID] = append(byOrder[*li.OrderID], li)
	}
	return byOrder, nil
}
