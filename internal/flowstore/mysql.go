package flowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"bnpl-gateway/internal/model"
)

// MySQLConfig is the connection configuration for the flow table.
type MySQLConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
}

// DSN renders the driver connection string. Timestamps are parsed into
// time.Time in UTC.
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = c.Addr
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// OpenMySQL opens and pings the database.
func OpenMySQL(ctx context.Context, c MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	return db, nil
}

const schema = `CREATE TABLE IF NOT EXISTS payment_flows (
	token VARCHAR(191) NOT NULL PRIMARY KEY,
	path VARCHAR(16) NOT NULL,
	cart_token VARCHAR(191) NOT NULL DEFAULT '',
	order_id VARCHAR(64) NOT NULL DEFAULT '',
	state VARCHAR(32) NOT NULL,
	transaction_ref VARCHAR(64) NOT NULL DEFAULT '',
	failure_kind VARCHAR(32) NOT NULL DEFAULT '',
	failure_message TEXT,
	updated_at DATETIME(6) NOT NULL,
	INDEX idx_order_id (order_id)
)`

const upsert = `INSERT INTO payment_flows
	(token, path, cart_token, order_id, state, transaction_ref, failure_kind, failure_message, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		path = VALUES(path),
		cart_token = VALUES(cart_token),
		order_id = VALUES(order_id),
		state = VALUES(state),
		transaction_ref = VALUES(transaction_ref),
		failure_kind = VALUES(failure_kind),
		failure_message = VALUES(failure_message),
		updated_at = VALUES(updated_at)`

const selectByToken = `SELECT token, path, cart_token, order_id, state, transaction_ref, failure_kind,
	COALESCE(failure_message, ''), updated_at
	FROM payment_flows WHERE token = ?`

// MySQL stores flow records in the payment_flows table.
type MySQL struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQL wraps an open database.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db, now: time.Now}
}

// EnsureSchema creates the payment_flows table if it does not exist.
func (s *MySQL) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating payment_flows table: %w", err)
	}
	return nil
}

func (s *MySQL) Get(ctx context.Context, token string) (*model.FlowRecord, error) {
	var rec model.FlowRecord
	var path, state, kind string
	err := s.db.QueryRowContext(ctx, selectByToken, token).Scan(
		&rec.Token, &path, &rec.CartToken, &rec.OrderID, &state,
		&rec.TransactionRef, &kind, &rec.FailureMessage, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("flow")
	}
	if err != nil {
		return nil, fmt.Errorf("reading flow %s: %w", token, err)
	}
	rec.Path = model.FlowPath(path)
	rec.State = model.FlowState(state)
	rec.FailureKind = model.ErrorKind(kind)
	return &rec, nil
}

func (s *MySQL) Put(ctx context.Context, rec *model.FlowRecord) error {
	if rec.Token == "" {
		return model.NewValidationError("token", "required")
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err := s.db.ExecContext(ctx, upsert,
		rec.Token, string(rec.Path), rec.CartToken, rec.OrderID, string(rec.State),
		rec.TransactionRef, string(rec.FailureKind), rec.FailureMessage, updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing flow %s: %w", rec.Token, err)
	}
	return nil
}

var _ Store = (*MySQL)(nil)
