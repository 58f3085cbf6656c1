package audit

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_logs (
	id         BIGSERIAL PRIMARY KEY,
	user_id    VARCHAR(50) NOT NULL,
	message    TEXT NOT NULL,
	response   TEXT NOT NULL,
	filtered   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_logs_user_id ON chat_logs (user_id, id DESC);
`

// Config contains database configuration.
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// PostgresStore persists audit entries in PostgreSQL. Id monotonicity under
// concurrent appends comes from the BIGSERIAL sequence.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects to the database, applies the schema and returns
// a ready store.
func NewPostgresStore(cfg *Config, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Audit log store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return store, nil
}

func (s *PostgresStore) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Append inserts one entry and fills in its assigned id and timestamp.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) (int64, error) {
	query := `
		INSERT INTO chat_logs (user_id, message, response, filtered)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		entry.UserID,
		entry.Message,
		entry.Response,
		entry.Filtered,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
		)
		return 0, fmt.Errorf("failed to append audit entry: %w", err)
	}

	s.logger.Debug("Audit entry appended",
		zap.Int64("id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.Bool("filtered", entry.Filtered),
	)
	return entry.ID, nil
}

// ListByUser returns the newest entries for a user, newest-first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, message, response, filtered, created_at
		FROM chat_logs
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2`

	entries := make([]Entry, 0, limit)
	if err := s.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// DeleteByID removes one entry. Deleting an absent id is not an error and
// returns false.
func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete audit entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetByID fetches a single entry, sql.ErrNoRows when absent.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Entry, error) {
	var entry Entry
	query := `
		SELECT id, user_id, message, response, filtered, created_at
		FROM chat_logs
		WHERE id = $1`
	if err := s.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return &entry, nil
}

// maskDatabaseURL hides credentials before the URL reaches a log line.
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
