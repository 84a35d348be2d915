package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/agrimarket/marketplace-api/internal/config"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations bootstraps the schema. A real deployment would use a migration
// tool; for this service the tables are created directly at startup.
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(50) PRIMARY KEY,
		farmer_id VARCHAR(50) NOT NULL,
		name VARCHAR(200) NOT NULL,
		description TEXT,
		price DECIMAL(10, 2) NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		average_rating DECIMAL(3, 2) NOT NULL DEFAULT 0,
		total_reviews INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		CONSTRAINT products_quantity_non_negative CHECK (quantity >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_products_farmer_id ON products(farmer_id);

	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(50) PRIMARY KEY,
		customer_id VARCHAR(50) NOT NULL,
		total_amount DECIMAL(10, 2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		payment_method VARCHAR(30) NOT NULL DEFAULT 'cash_on_delivery',
		tracking_number VARCHAR(100),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_items (
		id VARCHAR(50) PRIMARY KEY,
		order_id VARCHAR(50) NOT NULL REFERENCES orders(id),
		product_id VARCHAR(50) NOT NULL REFERENCES products(id),
		quantity INT NOT NULL,
		unit_price DECIMAL(10, 2) NOT NULL,
		line_total DECIMAL(10, 2) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS wallets (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL UNIQUE,
		balance DECIMAL(12, 2) NOT NULL DEFAULT 0,
		currency VARCHAR(10) NOT NULL DEFAULT 'USD',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		CONSTRAINT wallets_balance_non_negative CHECK (balance >= 0)
	);

	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id VARCHAR(50) PRIMARY KEY,
		wallet_id VARCHAR(50) NOT NULL REFERENCES wallets(id),
		type VARCHAR(10) NOT NULL,
		amount DECIMAL(12, 2) NOT NULL,
		description TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet_id ON wallet_transactions(wallet_id);

	CREATE TABLE IF NOT EXISTS payouts (
		id VARCHAR(50) PRIMARY KEY,
		farmer_id VARCHAR(50) NOT NULL,
		amount DECIMAL(12, 2) NOT NULL,
		fee DECIMAL(12, 2) NOT NULL,
		net_amount DECIMAL(12, 2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		bank_name VARCHAR(100) NOT NULL,
		bank_account VARCHAR(100) NOT NULL,
		account_holder VARCHAR(100) NOT NULL,
		approved_by VARCHAR(50),
		approved_at TIMESTAMP,
		approval_note TEXT,
		rejected_by VARCHAR(50),
		rejected_at TIMESTAMP,
		rejection_reason TEXT,
		processed_by VARCHAR(50),
		processed_at TIMESTAMP,
		transaction_id VARCHAR(100),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_farmer_id ON payouts(farmer_id);
	CREATE INDEX IF NOT EXISTS idx_payouts_status ON payouts(status);

	CREATE TABLE IF NOT EXISTS reviews (
		id VARCHAR(50) PRIMARY KEY,
		user_id VARCHAR(50) NOT NULL,
		product_id VARCHAR(50) NOT NULL REFERENCES products(id),
		rating INT NOT NULL,
		comment TEXT,
		type VARCHAR(20) NOT NULL DEFAULT 'product',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		CONSTRAINT reviews_rating_range CHECK (rating BETWEEN 1 AND 5),
		CONSTRAINT reviews_one_per_user_product UNIQUE (user_id, product_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id);

	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);

	CREATE TABLE IF NOT EXISTS dead_letter_messages (
		id SERIAL PRIMARY KEY,
		original_message_id BIGINT NOT NULL,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		error_message TEXT,
		failure_reason TEXT,
		retry_count INT NOT NULL DEFAULT 0,
		last_retry_at TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_dlq_status ON dead_letter_messages(status);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
