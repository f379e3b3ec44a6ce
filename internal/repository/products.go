package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/lib/pq"
)

const productColumns = `id, product_head_id, size_id, color_id, price, discount, inventory, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.ProductHeadID,
		&p.SizeID,
		&p.ColorID,
		&p.Price,
		&p.Discount,
		&p.Inventory,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(q.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (q *Queries) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (q *Queries) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (product_head_id, size_id, color_id, price, discount, inventory, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	          RETURNING id, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		p.ProductHeadID,
		p.SizeID,
		p.ColorID,
		p.Price,
		p.Discount,
		p.Inventory,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct edits taxonomy, price and discount. Inventory is never
// written here; p.Inventory is refreshed from the stored row.
func (q *Queries) UpdateProduct(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products
	          SET product_head_id = $2, size_id = $3, color_id = $4, price = $5, discount = $6, updated_at = NOW()
	          WHERE id = $1
	          RETURNING inventory, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		p.ID,
		p.ProductHeadID,
		p.SizeID,
		p.ColorID,
		p.Price,
		p.Discount,
	).Scan(&p.Inventory, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// AdjustInventory adds delta to the stored inventory in a single statement,
// so it composes with concurrent order decrements. A delta that would take
// inventory below zero yields ErrInsufficientStock.
func (q *Queries) AdjustInventory(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	query := `UPDATE products SET inventory = inventory + $2, updated_at = NOW()
	          WHERE id = $1 AND inventory + $2 >= 0
	          RETURNING ` + productColumns

	p, err := scanProduct(q.db.QueryRowContext(ctx, query, productID, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjust inventory: %w", err)
	}
	if _, errGet := q.GetProduct(ctx, productID); errGet != nil {
		return nil, errGet
	}
	return nil, ErrInsufficientStock
}

// LockProducts takes row locks in ascending id order so concurrent order
// placements over overlapping products cannot deadlock.
func (q *Queries) LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := q.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (q *Queries) DecrementInventory(ctx context.Context, productID int64, quantity int) error {
	query := `UPDATE products SET inventory = inventory - $2, updated_at = NOW()
	          WHERE id = $1 AND inventory >= $2`

	res, err := q.db.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement inventory rows affected: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}
