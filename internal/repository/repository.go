package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier is every statement the services need. Inside WithTx the same
// methods run against the transaction.
type Querier interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	DecrementInventory(ctx context.Context, productID int64, quantity int) error
	AdjustInventory(ctx context.Context, productID int64, delta int) (*domain.Product, error)

	CreateLineItem(ctx context.Context, item *domain.LineItem) error
	GetLineItem(ctx context.Context, id int64) (*domain.LineItem, error)
	UpdateLineItem(ctx context.Context, item *domain.LineItem) error
	DeleteLineItem(ctx context.Context, id, userID int64) error
	ListActiveLineItems(ctx context.Context, userID int64) ([]*domain.LineItem, error)
	LockActiveLineItems(ctx context.Context, userID int64, ids []int64) ([]*domain.LineItem, error)
	ConsumeLineItem(ctx context.Context, item *domain.LineItem, orderID int64) error

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)

	UpsertPendingPayment(ctx context.Context, p *domain.Payment) error
	CreatePaymentIfAbsent(ctx context.Context, p *domain.Payment) (bool, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID int64) (*domain.Payment, error)
	GetPendingPaymentBySession(ctx context.Context, sessionID string) (*domain.Payment, error)
	GetLatestExpiredPayment(ctx context.Context, userID int64) (*domain.Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error)
	TransitionPayment(ctx context.Context, t PaymentTransition) (*domain.Payment, error)
	ExpireStalePayments(ctx context.Context, createdBefore time.Time) ([]*domain.Payment, error)

	GetProfileByUser(ctx context.Context, userID int64) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	UpdateProfilePhone(ctx context.Context, userID int64, phone string) error
	GetAddress(ctx context.Context, id int64) (*domain.Address, error)
	CreateAddress(ctx context.Context, a *domain.Address) error
	ClearDefaultAddress(ctx context.Context, profileID int64) error
	AddressInUse(ctx context.Context, id int64) (bool, error)
	DeactivateAddress(ctx context.Context, id int64) error
	DeleteAddress(ctx context.Context, id int64) error

	InsertOutboxEvent(ctx context.Context, eventType, aggregateID string, payload any) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	MarkEventFailed(ctx context.Context, id int64, reason string) error
	MarkEventDead(ctx context.Context, id int64, reason string) error
}

// Store is a Querier that can also open a transaction.
type Store interface {
	Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

type Queries struct {
	db dbtx
}

type Repository struct {
	*Queries
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{Queries: &Queries{db: db}, db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// WithTx runs fn in a single transaction; any error rolls everything back.
func (r *Repository) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TransitionPayment always runs in its own transaction when called outside
// WithTx, so the payment and order status never drift apart.
func (r *Repository) TransitionPayment(ctx context.Context, t PaymentTransition) (*domain.Payment, error) {
	var p *domain.Payment
	err := r.WithTx(ctx, func(q Querier) error {
		var err error
		p, err = q.TransitionPayment(ctx, t)
		return err
	})
	return p, err
}

func (r *Repository) ExpireStalePayments(ctx context.Context, createdBefore time.Time) ([]*domain.Payment, error) {
	var expired []*domain.Payment
	err := r.WithTx(ctx, func(q Querier) error {
		var err error
		expired, err = q.ExpireStalePayments(ctx, createdBefore)
		return err
	})
	return expired, err
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
