package repository

import (
	"context"
	"errors"

	"github.com/authgate/authgate-go/internal/model"
)

// Engine-neutral signals every AccountStore reports in place of its native
// error values.
var (
	ErrConstraintViolation = errors.New("store: unique constraint violation")
	ErrDuplicateID         = errors.New("store: duplicate account id")
	ErrNoRecord            = errors.New("store: no record")
)

// AccountStore is the storage engine behind AccountRepository. Insert must be
// atomic with respect to the email uniqueness constraint: of two concurrent
// inserts with the same email, exactly one succeeds and the other reports
// ErrConstraintViolation.
type AccountStore interface {
	Insert(ctx context.Context, account *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
}
