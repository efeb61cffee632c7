package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authgate/authgate-go/internal/model"
)

const (
	// mysqlDuplicateEntry is ER_DUP_ENTRY.
	mysqlDuplicateEntry = 1062
	// emailConstraint names the unique index on accounts.email in both migrations.
	emailConstraint = "uq_accounts_email"
)

// Dialect describes the per-engine differences SQLStore cares about.
type Dialect struct {
	Name        string
	DriverName  string
	placeholder func(n int) string
}

var (
	MySQL = Dialect{
		Name:        "mysql",
		DriverName:  "mysql",
		placeholder: func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "pgx",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// DialectFor returns the Dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case MySQL.Name:
		return MySQL, nil
	case Postgres.Name:
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported store dialect %q", name)
}

// SQLStore implements AccountStore over database/sql. The accounts table
// carries a unique index on email; see the embedded migrations.
type SQLStore struct {
	db *sql.DB

	insertQuery      string
	findByEmailQuery string
	findByIDQuery    string
}

// NewSQLStore creates a SQLStore issuing queries for dialect d.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	p := d.placeholder
	return &SQLStore{
		db: db,
		insertQuery: fmt.Sprintf(`INSERT INTO accounts (id, email, firstname, lastname, password, created_at)
		VALUES (%s, %s, %s, %s, %s, %s)`, p(1), p(2), p(3), p(4), p(5), p(6)),
		findByEmailQuery: fmt.Sprintf(`SELECT id, email, firstname, lastname, password, created_at
		FROM accounts WHERE email = %s`, p(1)),
		findByIDQuery: fmt.Sprintf(`SELECT id, email, firstname, lastname, password, created_at
		FROM accounts WHERE id = %s`, p(1)),
	}
}

// Insert stores a new account in a single statement.
func (s *SQLStore) Insert(ctx context.Context, a *model.Account) error {
	_, err := s.db.ExecContext(ctx, s.insertQuery,
		a.ID, a.Email, a.FirstName, a.LastName, a.Password, a.CreatedAt,
	)
	if err != nil {
		if signal := uniqueViolation(err); signal != nil {
			return fmt.Errorf("%w: %v", signal, err)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByEmail retrieves an account by email address.
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.findOne(ctx, s.findByEmailQuery, email)
}

// FindByID retrieves an account by id.
func (s *SQLStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return s.findOne(ctx, s.findByIDQuery, id)
}

func (s *SQLStore) findOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	a := &model.Account{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Password, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// uniqueViolation maps a unique-key failure from either engine onto
// ErrConstraintViolation (email index) or ErrDuplicateID (primary key). It
// returns nil for any other error.
func uniqueViolation(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		if strings.Contains(myErr.Message, emailConstraint) {
			return ErrConstraintViolation
		}
		return ErrDuplicateID
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if pgErr.ConstraintName == emailConstraint {
			return ErrConstraintViolation
		}
		return ErrDuplicateID
	}
	return nil
}
