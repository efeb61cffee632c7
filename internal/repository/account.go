package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/authgate/authgate-go/internal/model"
)

var ErrAccountNotFound = errors.New("account not found")

// FieldError reports a required account attribute that is missing or blank.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// DuplicateEmailError is returned when an account already exists for Email.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("User with email %s already exists", e.Email)
}

// AccountRepository persists accounts and owns the email uniqueness invariant.
type AccountRepository struct {
	store   AccountStore
	timeout time.Duration
	newID   func() string
	now     func() time.Time
}

// NewAccountRepository creates an AccountRepository. A positive timeout bounds
// every store round-trip.
func NewAccountRepository(store AccountStore, timeout time.Duration) *AccountRepository {
	return &AccountRepository{
		store:   store,
		timeout: timeout,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Create inserts a new account and sets the generated ID on it. The account
// must already carry its hashed password.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) (model.CreatedAccount, error) {
	if err := checkRequired(account); err != nil {
		return model.CreatedAccount{}, err
	}

	record := *account
	record.Email = normalizeKey(account.Email)
	record.ID = r.newID()
	record.CreatedAt = r.now().UTC()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.Insert(ctx, &record); err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			return model.CreatedAccount{}, &DuplicateEmailError{Email: record.Email}
		}
		return model.CreatedAccount{}, oops.Code("STORE_INSERT_FAILED").
			With("operation", "insert account").
			With("email", account.Email).
			Wrap(err)
	}

	account.ID = record.ID
	account.Email = record.Email
	account.CreatedAt = record.CreatedAt

	return model.CreatedAccount{
		ID:        record.ID,
		Email:     record.Email,
		FirstName: record.FirstName,
		LastName:  record.LastName,
	}, nil
}

// FindByEmail retrieves an account, with its stored hash, by email address.
// It returns ErrAccountNotFound when no account matches.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	if isBlank(email) {
		return nil, &FieldError{Field: "email", Message: "Email is required and must be a string."}
	}

	email = normalizeKey(email)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	account, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, ErrAccountNotFound
		}
		return nil, oops.Code("STORE_QUERY_FAILED").
			With("operation", "find account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// FindByID retrieves an account by its identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if isBlank(id) {
		return nil, &FieldError{Field: "id", Message: "Id is required and must be a string."}
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	account, err := r.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, ErrAccountNotFound
		}
		return nil, oops.Code("STORE_QUERY_FAILED").
			With("operation", "find account by id").
			With("id", id).
			Wrap(err)
	}
	return account, nil
}

func (r *AccountRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// checkRequired guards the store against direct callers that skipped input
// validation.
func checkRequired(a *model.Account) error {
	if a == nil {
		return &FieldError{Field: "account", Message: "Account is required."}
	}
	switch {
	case isBlank(a.Email):
		return &FieldError{Field: "email", Message: "Email is required and must be a string."}
	case isBlank(a.FirstName):
		return &FieldError{Field: "firstname", Message: "First name is required and must be a string."}
	case isBlank(a.LastName):
		return &FieldError{Field: "lastname", Message: "Last name is required and must be a string."}
	case isBlank(a.Password):
		return &FieldError{Field: "password", Message: "Password is required and must be a string."}
	}
	return nil
}

// normalizeKey lower-cases an email so every store enforces uniqueness over
// the same key regardless of collation.
func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
