// pkg/store/store.go

// Package store is the relational store collaborator: schema lookups,
// duplicate checks and order persistence. It carries no pipeline logic.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/config"
)

// Store wraps the relational database behind the pipeline's collaborator
// contract. Duplicate check-and-insert paths are serialized so two
// workers can never both decide the same file or order is new.
type Store struct {
	db           *sqlx.DB
	logger       *zap.Logger
	queryTimeout time.Duration
	mu           sync.Mutex
}

// Open connects to the store and verifies the connection.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (*Store, error) {
	log := logger.Named("store")

	log.Info("Connecting to relational store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := pingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	return &Store{
		db:           db,
		logger:       log,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		db:           sqlx.NewDb(db, "postgres"),
		logger:       logger.Named("store"),
		queryTimeout: 30 * time.Second,
	}
}

// Close closes the store connection.
func (s *Store) Close() error {
	s.logger.Info("Closing store connection")
	return s.db.Close()
}

func pingWithTimeout(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(pingCtx)
}

func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// IsFileAlreadyIngested reports whether a file's base name was recorded by
// a previous run.
func (s *Store) IsFileAlreadyIngested(ctx context.Context, fileName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var exists bool
	err := s.db.GetContext(qctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM purchase_order_files WHERE file_name = $1)`,
		fileName)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate file: %w", err)
	}
	return exists, nil
}

// IsOrderAlreadyPersisted reports whether an order number was persisted by
// a previous run.
func (s *Store) IsOrderAlreadyPersisted(ctx context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	var exists bool
	err := s.db.GetContext(qctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE purchase_order_number = $1)`,
		orderNumber)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate order: %w", err)
	}
	return exists, nil
}

// RecordIngestedFile associates a file with the order numbers it carried,
// atomically: one file row plus one item row per order number, in a
// single transaction.
func (s *Store) RecordIngestedFile(ctx context.Context, partnerID int, fileName string, orderNumbers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(qctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowxContext(qctx,
		`INSERT INTO purchase_order_files (dropshipper_id, file_name, date)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		partnerID, fileName, time.Now()).Scan(&fileID)
	if err != nil {
		return fmt.Errorf("failed to record file %s: %w", fileName, err)
	}

	for _, number := range orderNumbers {
		_, err = tx.ExecContext(qctx,
			`INSERT INTO purchase_order_file_items (purchase_order_file_id, purchase_order_number)
			 VALUES ($1, $2)`,
			fileID, number)
		if err != nil {
			return fmt.Errorf("failed to record order number %s for file %s: %w", number, fileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file record: %w", err)
	}

	s.logger.Info("Recorded ingested file",
		zap.String("file", fileName),
		zap.Int("dropshipperID", partnerID),
		zap.Int("orderNumbers", len(orderNumbers)))
	return nil
}
