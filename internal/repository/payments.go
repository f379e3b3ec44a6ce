package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/lib/pq"
)

// payments carry no user column; ownership comes from the order.
const paymentSelect = `SELECT p.id, p.order_id, o.user_id, p.status, p.session_url, p.session_id, p.money_to_pay,
	p.session_created_at, p.expired_at, p.created_at, p.updated_at
	FROM payments p JOIN orders o ON o.id = p.order_id`

const paymentReturning = `id, order_id, status, session_url, session_id, money_to_pay,
	session_created_at, expired_at, created_at, updated_at`

// PaymentFilter narrows ListPayments. A nil UserID lists every payment.
type PaymentFilter struct {
	UserID *int64
}

// PaymentTransition moves one payment from From to To and projects the new
// status onto its order. A non-empty SessionID replaces the stored session.
type PaymentTransition struct {
	PaymentID  int64
	From       domain.PaymentStatus
	To         domain.PaymentStatus
	SessionID  string
	SessionURL string
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.UserID,
		&p.Status,
		&p.SessionURL,
		&p.SessionID,
		&p.MoneyToPay,
		&p.SessionCreatedAt,
		&p.ExpiredAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) getPayment(ctx context.Context, where string, args ...any) (*domain.Payment, error) {
	p, err := scanPayment(q.db.QueryRowContext(ctx, paymentSelect+" "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return p, nil
}

// UpsertPendingPayment records a fresh Pending session for an order. A
// second call for the same order replaces the session unless it is Paid.
func (q *Queries) UpsertPendingPayment(ctx context.Context, p *domain.Payment) error {
	query := `WITH upserted AS (
	              INSERT INTO payments (order_id, status, session_url, session_id, money_to_pay, session_created_at, created_at, updated_at)
	              VALUES ($1, 'Pending', $2, $3, $4, NOW(), NOW(), NOW())
	              ON CONFLICT (order_id) DO UPDATE
	                  SET status = 'Pending', session_url = EXCLUDED.session_url, session_id = EXCLUDED.session_id,
	                      money_to_pay = EXCLUDED.money_to_pay, session_created_at = NOW(), expired_at = NULL, updated_at = NOW()
	                  WHERE payments.status <> 'Paid'
	              RETURNING ` + paymentReturning + `
	          )
	          SELECT u.id, u.order_id, o.user_id, u.status, u.session_url, u.session_id, u.money_to_pay,
	                 u.session_created_at, u.expired_at, u.created_at, u.updated_at
	          FROM upserted u JOIN orders o ON o.id = u.order_id`

	saved, err := scanPayment(q.db.QueryRowContext(ctx, query, p.OrderID, p.SessionURL, p.SessionID, p.MoneyToPay))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPaymentAlreadyPaid
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSessionID
		}
		return fmt.Errorf("upsert payment: %w", err)
	}
	*p = *saved
	return nil
}

// CreatePaymentIfAbsent inserts a Pending payment unless the order already
// has one, reporting whether the row was written.
func (q *Queries) CreatePaymentIfAbsent(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `WITH inserted AS (
	              INSERT INTO payments (order_id, status, session_url, session_id, money_to_pay, session_created_at, created_at, updated_at)
	              VALUES ($1, 'Pending', $2, $3, $4, NOW(), NOW(), NOW())
	              ON CONFLICT (order_id) DO NOTHING
	              RETURNING ` + paymentReturning + `
	          )
	          SELECT u.id, u.order_id, o.user_id, u.status, u.session_url, u.session_id, u.money_to_pay,
	                 u.session_created_at, u.expired_at, u.created_at, u.updated_at
	          FROM inserted u JOIN orders o ON o.id = u.order_id`

	saved, err := scanPayment(q.db.QueryRowContext(ctx, query, p.OrderID, p.SessionURL, p.SessionID, p.MoneyToPay))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateSessionID
		}
		return false, fmt.Errorf("insert payment: %w", err)
	}
	*p = *saved
	return true, nil
}

func (q *Queries) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return q.getPayment(ctx, `WHERE p.id = $1`, id)
}

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID int64) (*domain.Payment, error) {
	return q.getPayment(ctx, `WHERE p.order_id = $1`, orderID)
}

func (q *Queries) GetPendingPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	return q.getPayment(ctx, `WHERE p.session_id = $1 AND p.status = 'Pending'`, sessionID)
}

// GetLatestExpiredPayment picks the most recently expired payment of a user.
func (q *Queries) GetLatestExpiredPayment(ctx context.Context, userID int64) (*domain.Payment, error) {
	return q.getPayment(ctx,
		`WHERE o.user_id = $1 AND p.status = 'Expired' ORDER BY p.expired_at DESC NULLS LAST, p.id DESC LIMIT 1`,
		userID)
}

func (q *Queries) ListPayments(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error) {
	query := paymentSelect + ` WHERE ($1::BIGINT IS NULL OR o.user_id = $1) ORDER BY p.id DESC`

	rows, err := q.db.QueryContext(ctx, query, filter.UserID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return payments, nil
}

// TransitionPayment is a compare-and-set on the payment status followed by
// the matching order status update. Both statements share the caller's tx.
func (q *Queries) TransitionPayment(ctx context.Context, t PaymentTransition) (*domain.Payment, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStaleTransition, t.From, t.To)
	}

	query := `WITH updated AS (
	              UPDATE payments SET
	                  status = $3,
	                  session_id = COALESCE(NULLIF($4::TEXT, ''), session_id),
	                  session_url = COALESCE(NULLIF($5::TEXT, ''), session_url),
	                  session_created_at = CASE WHEN $4::TEXT <> '' THEN NOW() ELSE session_created_at END,
	                  expired_at = CASE WHEN $3 = 'Expired' THEN NOW() ELSE NULL END,
	                  updated_at = NOW()
	              WHERE id = $1 AND status = $2
	              RETURNING ` + paymentReturning + `
	          )
	          SELECT u.id, u.order_id, o.user_id, u.status, u.session_url, u.session_id, u.money_to_pay,
	                 u.session_created_at, u.expired_at, u.created_at, u.updated_at
	          FROM updated u JOIN orders o ON o.id = u.order_id`

	p, err := scanPayment(q.db.QueryRowContext(ctx, query,
		t.PaymentID, string(t.From), string(t.To), t.SessionID, t.SessionURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleTransition
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSessionID
		}
		return nil, fmt.Errorf("transition payment: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		p.OrderID, string(p.Status.OrderStatus()))
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return p, nil
}

// ExpireStalePayments expires every Pending payment whose session was created
// before createdBefore, together with its order.
func (q *Queries) ExpireStalePayments(ctx context.Context, createdBefore time.Time) ([]*domain.Payment, error) {
	query := `WITH updated AS (
	              UPDATE payments SET status = 'Expired', expired_at = NOW(), updated_at = NOW()
	              WHERE status = 'Pending' AND session_created_at < $1
	              RETURNING ` + paymentReturning + `
	          )
	          SELECT u.id, u.order_id, o.user_id, u.status, u.session_url, u.session_id, u.money_to_pay,
	                 u.session_created_at, u.expired_at, u.created_at, u.updated_at
	          FROM updated u JOIN orders o ON o.id = u.order_id
	          ORDER BY u.id`

	rows, err := q.db.QueryContext(ctx, query, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("expire payments: %w", err)
	}
	defer rows.Close()

	var expired []*domain.Payment
	var orderIDs []int64
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		expired = append(expired, p)
		orderIDs = append(orderIDs, p.OrderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE orders SET status = 'Expired', updated_at = NOW() WHERE id = ANY($1) AND status = 'Pending'`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("expire orders: %w", err)
	}
	return expired, nil
}
