package store

import (
	"errors"
	"fmt"

	"popup-server/internal/observability"

	_ "github.com/jackc/pgx/v5/stdlib" // Import the pgx stdlib for sqlx
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

// ErrDuplicateDiscountCode is returned when a subscriber insert violates the
// unique constraint on discount codes.
var ErrDuplicateDiscountCode = errors.New("duplicate discount code")

type Store struct {
	db     *sqlx.DB
	logger *observability.Logger
}

func New(connectionString string, logger *observability.Logger) (*Store, error) {
	db, err := sqlx.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// DB returns the underlying database connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the database connection pool
func (s *Store) Close() error {
	return s.db.Close()
}
