// Package warehouse is the storage collaborator around the historian and
// the segmentation engine. All reads and writes happen at batch boundaries;
// no core logic lives here.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"flakemart/pkg/errors"
)

// Service provides Snowflake database operations
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
}

// Config holds Snowflake connection configuration plus the table names the
// pipeline reads and writes.
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration

	DimensionTable   string
	SnapshotTable    string
	TransactionTable string
	AssessmentTable  string
}

// NewService creates a new warehouse service
func NewService(config Config) *Service {
	if config.DimensionTable == "" {
		config.DimensionTable = "DIM_CUSTOMER"
	}
	if config.SnapshotTable == "" {
		config.SnapshotTable = "STG_CUSTOMER_SNAPSHOTS"
	}
	if config.TransactionTable == "" {
		config.TransactionTable = "FCT_TRANSACTIONS"
	}
	if config.AssessmentTable == "" {
		config.AssessmentTable = "CUSTOMER_SEGMENTS"
	}
	return &Service{config: config}
}

// Connect establishes a connection to Snowflake
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	return errors.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			s.config.Username,
			s.config.Password,
			s.config.Account,
			s.config.Database,
			s.config.Schema,
			s.config.Warehouse,
			s.config.Role,
		)

		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return errors.ConnectionError("Failed to open Snowflake connection", err).
				WithContext("account", s.config.Account).
				WithContext("warehouse", s.config.Warehouse)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)

		connCtx, cancel := s.getContext()
		defer cancel()

		if err := db.PingContext(connCtx); err != nil {
			db.Close()

			if strings.Contains(err.Error(), "authentication") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", s.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Check if your account is locked",
					)
			}

			return errors.ConnectionError("Failed to connect to Snowflake", err).
				WithContext("account", s.config.Account).
				AsRecoverable()
		}

		s.db = db
		s.connected = true
		return nil
	})
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	s.connected = false
	return nil
}

// TestConnection pings the warehouse, connecting first if needed.
func (s *Service) TestConnection() error {
	if !s.connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	ctx, cancel := s.getContext()
	defer cancel()

	return s.db.PingContext(ctx)
}

// ValidateConfig validates the warehouse connection configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return fmt.Errorf("account is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Warehouse == "" {
		return fmt.Errorf("warehouse is required")
	}
	if config.Role == "" {
		return fmt.Errorf("role is required")
	}
	return nil
}

// SetDB injects an existing database handle. Used by tests to run the
// service against a mock connection.
func (s *Service) SetDB(db *sql.DB) {
	s.db = db
	s.connected = true
}

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// table qualifies a table name with the configured database and schema.
func (s *Service) table(name string) string {
	return fmt.Sprintf("%s.%s.%s", s.config.Database, s.config.Schema, name)
}
